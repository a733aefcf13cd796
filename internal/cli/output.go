package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hitoshi/teetimes/internal/model"
)

// OutputFormat は出力形式。
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(raw string) (OutputFormat, error) {
	switch format := OutputFormat(strings.ToLower(strings.TrimSpace(raw))); format {
	case FormatText, FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", raw)
	}
}

// SearchResult はsearchコマンドの出力内容。
type SearchResult struct {
	Date     string          `json:"date"`
	Players  int             `json:"players"`
	Courses  int             `json:"courses"`
	TeeTimes []model.TeeTime `json:"tee_times"`
}

// writeTeeTimes は検索結果を出力する。テキスト形式では時刻をlocで表示する。
func writeTeeTimes(w io.Writer, result *SearchResult, format OutputFormat, loc *time.Location) error {
	if result.TeeTimes == nil {
		result.TeeTimes = []model.TeeTime{}
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		if loc == nil {
			loc = time.UTC
		}
		if len(result.TeeTimes) == 0 {
			fmt.Fprintf(w, "No tee times found for %s (%d players, %d courses searched).\n",
				result.Date, result.Players, result.Courses)
			return nil
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tCOURSE\tPRICE\tPLAYERS\tHOLES\tBOOK")
		for _, tt := range result.TeeTimes {
			fmt.Fprintf(tw, "%s\t%s\t$%.2f\t%d\t%s\t%s\n",
				tt.TeeTime.In(loc).Format("2006-01-02 15:04 MST"),
				tt.Course,
				tt.Price,
				tt.Players,
				holesText(tt.Holes),
				tt.BookURL,
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nTotal: %d tee times across %d courses\n", len(result.TeeTimes), result.Courses)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeCourses はコース一覧を出力する。
func writeCourses(w io.Writer, courses []model.GolfCourse, format OutputFormat) error {
	if courses == nil {
		courses = []model.GolfCourse{}
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, courses)
	case FormatText:
		if len(courses) == 0 {
			fmt.Fprintln(w, "No courses found.")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSOURCE\tID\tLAT\tLON")
		for _, c := range courses {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\n", c.Name, c.Source, c.ID.String(), c.Lat, c.Lon)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nTotal: %d courses\n", len(courses))
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func holesText(holes *int) string {
	if holes == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *holes)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
