package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gosuri/uitable"

	"vessel-proximity/internal/model"
	"vessel-proximity/pkg/utils"
)

// Render writes the report as a table or as JSON
func Render(w io.Writer, r *model.ProximityReport, output string) error {
	if output == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return renderTable(w, r)
}

func renderTable(w io.Writer, r *model.ProximityReport) error {
	rule := strings.Repeat("-", 60)

	fmt.Fprintf(w, "Reference position: %.5f, %.5f\n", r.Reference.Latitude, r.Reference.Longitude)
	fmt.Fprintf(w, "Vessels within %g NM (collected over ~%ds): %d\n", r.RadiusNM, int(r.Duration.Seconds()), len(r.Vessels))
	fmt.Fprintln(w, rule)

	if len(r.Vessels) == 0 {
		fmt.Fprintln(w, "  No vessels in range this time.")
		fmt.Fprintln(w, "  You can try a larger radius (e.g. --radius 50) or run again later.")
	} else {
		table := uitable.New()
		table.MaxColWidth = 32
		table.AddRow("NAME", "DIST NM", "HEADING", "SPEED KT", "MMSI", "POSITION", "TIME (UTC)")
		for _, v := range r.Vessels {
			p := v.Position
			table.AddRow(
				vesselName(p),
				fmt.Sprintf("%.1f", v.DistanceNM),
				headingText(p),
				optionalText(p.Speed, "%.1f"),
				p.MMSI,
				fmt.Sprintf("%.5f, %.5f", p.Latitude, p.Longitude),
				utils.FormatTimestamp(p.Timestamp),
			)
		}
		fmt.Fprintln(w, table)
	}

	if r.LiveState == model.StateFailed {
		fmt.Fprintf(w, "  Live feed ended early: %s\n", r.LiveError)
	}

	fmt.Fprintln(w, rule)
	_, err := fmt.Fprintln(w, presenceText(r.Presence))
	return err
}

func vesselName(p model.VesselPosition) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return "(no name)"
}

// headingText prefers the true heading and falls back to course over ground
func headingText(p model.VesselPosition) string {
	if p.Heading != nil {
		return fmt.Sprintf("%.0f°", *p.Heading)
	}
	if p.Course != nil {
		return fmt.Sprintf("%.0f° (COG)", *p.Course)
	}
	return "-"
}

func optionalText(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func presenceText(s model.PresenceSummary) string {
	prefix := fmt.Sprintf("GFW (last %dh):", s.WindowHours)
	switch s.Status {
	case model.PresenceSkipped:
		return prefix + " skipped (no token). Get a free token at https://globalfishingwatch.org/our-apis/tokens"
	case model.PresenceOK:
		return fmt.Sprintf("%s vessel presence in area: Yes, %d vessel(s) in the last %d hours", prefix, s.Count, s.WindowHours)
	case model.PresenceNoData:
		return fmt.Sprintf("%s vessel presence in area: No vessels in the last %d hours", prefix, s.WindowHours)
	case model.PresenceAuthError:
		return fmt.Sprintf("%s token rejected: %s", prefix, s.Error)
	default:
		return fmt.Sprintf("%s error: %s", prefix, s.Error)
	}
}
