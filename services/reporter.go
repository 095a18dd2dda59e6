package services

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tutorial-scraper/models"
)

const reportWidth = 55

// PrintRunReport prints run statistics to stdout
func PrintRunReport(s models.RunSnapshot) {
	WriteRunReport(os.Stdout, s)
}

// WriteRunReport formats run statistics for a terminal
func WriteRunReport(w io.Writer, s models.RunSnapshot) {
	border := strings.Repeat("═", reportWidth)
	thin := strings.Repeat("─", reportWidth)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	fmt.Fprintf(w, "║%s║\n", center("SCRAPING RUN "+strings.ToUpper(s.Tool), reportWidth))
	fmt.Fprintf(w, "╚%s╝\n", border)

	fmt.Fprintf(w, "\n RUN\n%s\n", thin)
	fmt.Fprintf(w, "  Run ID                  : %s\n", s.RunID)
	fmt.Fprintf(w, "  Duration                : %s\n", s.Duration().Round(time.Second))

	fmt.Fprintf(w, "\n PIPELINE\n%s\n", thin)
	fmt.Fprintf(w, "  Terms searched          : %d\n", s.Searched)
	fmt.Fprintf(w, "  Terms failed            : %d\n", s.FailedTerms)
	fmt.Fprintf(w, "  Videos found            : %d\n", s.Found)
	fmt.Fprintf(w, "  Malformed dropped       : %d\n", s.Malformed)
	fmt.Fprintf(w, "  Duplicates skipped      : %d\n", s.Duplicates)
	fmt.Fprintf(w, "  Rejected by filter      : %d\n", s.Rejected)
	fmt.Fprintf(w, "  Passed quality          : %d\n", s.PassedQuality)
	fmt.Fprintf(w, "  Inserted / updated      : %d\n", s.Inserted)
	fmt.Fprintf(w, "  Failed batches          : %d\n", s.FailedBatches)

	fmt.Fprintf(w, "\n%s\n\n", border)
}

// PrintInsightReport prints the catalog report to stdout
func PrintInsightReport(report *models.CatalogReport) {
	WriteInsightReport(os.Stdout, report)
}

// WriteInsightReport formats the catalog report for a terminal
func WriteInsightReport(w io.Writer, report *models.CatalogReport) {
	border := strings.Repeat("═", reportWidth)
	thin := strings.Repeat("─", reportWidth)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	fmt.Fprintf(w, "║%s║\n", center("TUTORIAL CATALOG INSIGHTS", reportWidth))
	fmt.Fprintf(w, "╚%s╝\n", border)

	fmt.Fprintf(w, "\n OVERVIEW\n%s\n", thin)
	if report.Tool != "" {
		fmt.Fprintf(w, "  Tool                    : %s\n", report.Tool)
	}
	fmt.Fprintf(w, "  Total Videos Stored     : %d\n", report.TotalVideos)
	fmt.Fprintf(w, "  Average Quality (sample): %.2f\n", report.AverageQuality)
	fmt.Fprintf(w, "  Total Views (sample)    : %d\n", report.TotalViews)

	if report.TotalVideos > 0 {
		fmt.Fprintf(w, "\n VIDEOS PER DIFFICULTY\n%s\n", thin)
		for _, d := range models.StorageLevels {
			cnt := report.ByDifficulty[d]
			avg := ""
			for _, s := range report.Summaries {
				if s.Difficulty == d {
					avg = fmt.Sprintf("avg %.1f", s.AverageQuality)
				}
			}
			bar := strings.Repeat("▓", min(cnt, 30))
			fmt.Fprintf(w, "  %-14s %5d  %-9s %s\n", string(d)+":", cnt, avg, bar)
		}
	}

	if report.Longest != nil {
		fmt.Fprintf(w, "\n LONGEST TUTORIAL\n%s\n", thin)
		fmt.Fprintf(w, "  Title    : %s\n", report.Longest.Title)
		fmt.Fprintf(w, "  Duration : %s\n", time.Duration(report.Longest.DurationSeconds)*time.Second)
		fmt.Fprintf(w, "  URL      : %s\n", report.Longest.URL)
	}

	if len(report.TopRated) > 0 {
		fmt.Fprintf(w, "\n TOP %d HIGHEST QUALITY VIDEOS\n%s\n", len(report.TopRated), thin)
		for i, v := range report.TopRated {
			fmt.Fprintf(w, "  %d. %-40s %6.2f\n", i+1, truncate(v.Title, 40), v.QualityScore)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", border)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
