package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass":
		return colorSuccess(status)
	case "error", "fail", "failed":
		return colorError(status)
	default:
		return status
	}
}

// formatGrade colors letter grades: A green, B/C yellow, anything worse red.
func formatGrade(grade string) string {
	switch {
	case strings.HasPrefix(grade, "A"):
		return colorSuccess(grade)
	case strings.HasPrefix(grade, "B"), strings.HasPrefix(grade, "C"):
		return colorWarn(grade)
	case grade == "" || grade == "Unknown":
		return grade
	default:
		return colorError(grade)
	}
}

// formatScore renders a 0..1 score as 0..100 with the usual performance bands.
func formatScore(score float64) string {
	text := fmt.Sprintf("%.0f", math.Round(score*100))
	switch {
	case score >= 0.9:
		return colorSuccess(text)
	case score >= 0.5:
		return colorWarn(text)
	default:
		return colorError(text)
	}
}
