package model

import "time"

// TeeTime はプロバイダー間で共通化されたティータイムを表す。
// プロバイダーアダプターのみが生成し、生成後は変更しない。
// 同一コース・同一時刻のレコードが複数プロバイダーから返っても重複排除は行わない。
type TeeTime struct {
	Course  string    `json:"course"`
	TeeTime time.Time `json:"tee_time"` // UTC
	Price   float64   `json:"price"`    // ドル単位
	Players int       `json:"players"`
	Holes   *int      `json:"holes"`
	Lat     float64   `json:"lat"`
	Lon     float64   `json:"lon"`
	BookURL string    `json:"book_url"`
}

// NewTeeTime はコース情報を非正規化したTeeTimeを生成する。
// 時刻は常にUTCに変換して保持する。
func NewTeeTime(course GolfCourse, at time.Time, price float64, players int, holes *int, bookURL string) TeeTime {
	return TeeTime{
		Course:  course.Name,
		TeeTime: at.UTC(),
		Price:   price,
		Players: players,
		Holes:   holes,
		Lat:     course.Lat,
		Lon:     course.Lon,
		BookURL: bookURL,
	}
}

// IntPtr はホール数などの任意項目を設定するためのヘルパー。
func IntPtr(v int) *int {
	return &v
}
