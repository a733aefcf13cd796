// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/teetimes/internal/model"
)

// CourseRepository はコースカタログの永続化インターフェース。
type CourseRepository interface {
	// ListAll は登録順に全コースを取得する。
	ListAll(ctx context.Context) ([]model.GolfCourse, error)

	// ReplaceAll はカタログ全体を同一トランザクションで置き換える。
	ReplaceAll(ctx context.Context, courses []model.GolfCourse) error

	// Count は登録済みコース数を返す。
	Count(ctx context.Context) (int, error)
}
