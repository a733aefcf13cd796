// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// CourseIDKind はコースIDの形状を表す。
type CourseIDKind int

const (
	// CourseIDNumber は整数のみのID。
	CourseIDNumber CourseIDKind = iota + 1
	// CourseIDString は文字列のみのID。
	CourseIDString
	// CourseIDVerbose は {id, url, alias} 形式のID。
	CourseIDVerbose
)

// VerboseCourseID はベースURLとテナントエイリアスを持つコースID。
// TeeItUpのように、リクエストヘッダーにコース固有の情報を要求するプロバイダーで使用する。
type VerboseCourseID struct {
	ID    int64  `json:"id"`
	URL   string `json:"url"`
	Alias string `json:"alias"`
}

// CourseID はコースの識別子を表す。
// JSON上の形状（整数 / 文字列 / オブジェクト）によって判別される。
type CourseID struct {
	kind    CourseIDKind
	number  int64
	str     string
	verbose VerboseCourseID
}

// ErrInvalidCourseID はどの形状にも一致しないコースIDを表す。
var ErrInvalidCourseID = errors.New("course id must be an integer, a string, or {id, url, alias}")

// NewNumberCourseID は整数IDを生成する。
func NewNumberCourseID(n int64) CourseID {
	return CourseID{kind: CourseIDNumber, number: n}
}

// NewStringCourseID は文字列IDを生成する。
func NewStringCourseID(s string) CourseID {
	return CourseID{kind: CourseIDString, str: s}
}

// NewVerboseCourseID は {id, url, alias} 形式のIDを生成する。
func NewVerboseCourseID(v VerboseCourseID) CourseID {
	return CourseID{kind: CourseIDVerbose, verbose: v}
}

// Kind はIDの形状を返す。ゼロ値の場合は0を返す。
func (c CourseID) Kind() CourseIDKind {
	return c.kind
}

// Verbose は {id, url, alias} 形式の内容を返す。
// それ以外の形状の場合はokがfalseになる。
func (c CourseID) Verbose() (VerboseCourseID, bool) {
	if c.kind != CourseIDVerbose {
		return VerboseCourseID{}, false
	}
	return c.verbose, true
}

// String はプロバイダーのURLに埋め込むID文字列を返す。
// 整数は10進表記、文字列はそのまま、verbose形式は数値IDを使用する。
func (c CourseID) String() string {
	switch c.kind {
	case CourseIDNumber:
		return strconv.FormatInt(c.number, 10)
	case CourseIDString:
		return c.str
	case CourseIDVerbose:
		return strconv.FormatInt(c.verbose.ID, 10)
	default:
		return ""
	}
}

// verboseWire は必須キーの有無を判定するためのデコード用構造体。
type verboseWire struct {
	ID    *int64  `json:"id"`
	URL   *string `json:"url"`
	Alias *string `json:"alias"`
}

// UnmarshalJSON は整数 → 文字列 → verbose形式の順に解析を試み、最初に一致した形状を採用する。
func (c *CourseID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)

	var n int64
	if err := json.Unmarshal(trimmed, &n); err == nil && !bytes.Equal(trimmed, []byte("null")) {
		*c = NewNumberCourseID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil && !bytes.Equal(trimmed, []byte("null")) {
		*c = NewStringCourseID(s)
		return nil
	}

	var v verboseWire
	if err := json.Unmarshal(trimmed, &v); err == nil && !bytes.Equal(trimmed, []byte("null")) {
		if v.ID == nil || v.URL == nil || v.Alias == nil {
			return fmt.Errorf("%w: verbose id requires id, url and alias", ErrInvalidCourseID)
		}
		*c = NewVerboseCourseID(VerboseCourseID{ID: *v.ID, URL: *v.URL, Alias: *v.Alias})
		return nil
	}

	return fmt.Errorf("%w: %s", ErrInvalidCourseID, string(trimmed))
}

// MarshalJSON は解析時と同じ形状でIDを書き出す。
func (c CourseID) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case CourseIDNumber:
		return json.Marshal(c.number)
	case CourseIDString:
		return json.Marshal(c.str)
	case CourseIDVerbose:
		return json.Marshal(c.verbose)
	default:
		return nil, ErrInvalidCourseID
	}
}

// GolfCourse はカタログに登録されたゴルフコースを表す。
// 起動時に読み込まれた後は変更されず、全リクエストで読み取り専用として共有される。
type GolfCourse struct {
	ID     CourseID `json:"id"`
	Name   string   `json:"name"`
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Source string   `json:"source"`
}

// BoundingBox は緯度経度の矩形範囲を表す。
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// DefaultBoundingBox は範囲指定がない場合に使用するカンザスシティ都市圏の矩形。
var DefaultBoundingBox = BoundingBox{
	MinLat: 38.757,
	MaxLat: 39.427,
	MinLon: -94.908,
	MaxLon: -94.235,
}

// Contains は座標が矩形内（境界を含む）にあるかを判定する。
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.MinLat <= lat && lat <= b.MaxLat &&
		b.MinLon <= lon && lon <= b.MaxLon
}
