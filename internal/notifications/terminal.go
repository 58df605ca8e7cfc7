package notifications

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/clienthunter/leadwatch/internal/models"
)

// Terminal writes reports and alerts as plain text instead of sending them
type Terminal struct {
	Out io.Writer
}

// SendReport writes the text rendering of report
func (t *Terminal) SendReport(ctx context.Context, report *models.Report) error {
	rule := strings.Repeat("=", 70)
	_, err := fmt.Fprintf(t.Out, "\n%s\n%s%s\n", rule, buildReportText(report), rule)
	return err
}

// SendAlert writes the text rendering of alert
func (t *Terminal) SendAlert(ctx context.Context, alert *models.Alert) error {
	_, err := fmt.Fprintf(t.Out, "\n🚨 %s\n", buildAlertText(alert))
	return err
}
