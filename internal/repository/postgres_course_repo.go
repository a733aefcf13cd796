package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/teetimes/internal/model"
)

// PostgresCourseRepo はPostgreSQLを使用したコースリポジトリ。
// コースIDは形状（整数・文字列・verbose）を保つためJSONBで保存する。
type PostgresCourseRepo struct {
	db *sql.DB
}

// NewPostgresCourseRepo はPostgresCourseRepoを生成する。
func NewPostgresCourseRepo(db *sql.DB) *PostgresCourseRepo {
	return &PostgresCourseRepo{db: db}
}

// ListAll は登録順に全コースを取得する。
func (r *PostgresCourseRepo) ListAll(ctx context.Context) ([]model.GolfCourse, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT course_id, name, lat, lon, source
		 FROM courses ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("コース一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	courses := make([]model.GolfCourse, 0)
	for rows.Next() {
		var (
			c     model.GolfCourse
			rawID []byte
		)
		if err := rows.Scan(&rawID, &c.Name, &c.Lat, &c.Lon, &c.Source); err != nil {
			return nil, fmt.Errorf("コースのスキャンに失敗しました: %w", err)
		}
		if err := json.Unmarshal(rawID, &c.ID); err != nil {
			return nil, fmt.Errorf("コースID %s の解析に失敗しました: %w", rawID, err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コース一覧の読み取りに失敗しました: %w", err)
	}

	return courses, nil
}

// Load はcatalog.Loaderとしてカタログ全体を返す。
func (r *PostgresCourseRepo) Load(ctx context.Context) ([]model.GolfCourse, error) {
	return r.ListAll(ctx)
}

// ReplaceAll はカタログ全体を同一トランザクションで置き換える。
// 入力順をpositionとして保存し、ListAllで同じ順序を復元する。
func (r *PostgresCourseRepo) ReplaceAll(ctx context.Context, courses []model.GolfCourse) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM courses`); err != nil {
		return fmt.Errorf("既存コースの削除に失敗しました: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO courses (position, course_id, name, lat, lon, source)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
	)
	if err != nil {
		return fmt.Errorf("INSERT文の準備に失敗しました: %w", err)
	}
	defer stmt.Close()

	for i, c := range courses {
		rawID, err := json.Marshal(c.ID)
		if err != nil {
			return fmt.Errorf("コース %q のID変換に失敗しました: %w", c.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, i, string(rawID), c.Name, c.Lat, c.Lon, c.Source); err != nil {
			return fmt.Errorf("コース %q の登録に失敗しました: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Count は登録済みコース数を返す。
func (r *PostgresCourseRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM courses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("コース数の取得に失敗しました: %w", err)
	}
	return n, nil
}
