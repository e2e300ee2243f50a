// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders advisory output for humans.
//
// Styling follows the Aleutian palette. Plain mode strips all ANSI so
// output can be piped or diffed.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/collisionguard/internal/policy"
	"github.com/AleutianAI/collisionguard/internal/risk"
)

// Aleutian color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E") // borders
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorDanger  = lipgloss.Color("#E67E22")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Danger    lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Danger:    lipgloss.NewStyle().Foreground(ColorDanger).Bold(true),
	Error:     lipgloss.NewStyle().Foreground(ColorError).Bold(true),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Printer writes styled or plain advisory output.
//
// # Thread Safety
//
// Not safe for concurrent use. Callers serialize writes.
type Printer struct {
	w     io.Writer
	plain bool
}

// NewPrinter creates a Printer for w in the given mode.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, plain: mode == ModePlain}
}

// Plain reports whether styling is disabled.
func (p *Printer) Plain() bool {
	return p.plain
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if p.plain {
		return text
	}
	return s.Render(text)
}

// Icon renders i in its semantic color.
func (p *Printer) Icon(i Icon) string {
	switch i {
	case IconSuccess:
		return p.style(Styles.Success, string(i))
	case IconWarning:
		return p.style(Styles.Warning, string(i))
	case IconError:
		return p.style(Styles.Error, string(i))
	default:
		return string(i)
	}
}

// Level renders a risk level in the color of its band.
func (p *Printer) Level(l risk.Level) string {
	switch l {
	case risk.LevelCritical:
		return p.style(Styles.Error, string(l))
	case risk.LevelHigh:
		return p.style(Styles.Danger, string(l))
	case risk.LevelMedium:
		return p.style(Styles.Warning, string(l))
	default:
		return p.style(Styles.Success, string(l))
	}
}

// Action renders an action name. Maintain is muted, everything else is
// highlighted.
func (p *Printer) Action(a policy.Action) string {
	if a == policy.ActionMaintain {
		return p.style(Styles.Muted, string(a))
	}
	return p.style(Styles.Highlight, string(a))
}

// Title prints a styled title line.
func (p *Printer) Title(text string) {
	fmt.Fprintln(p.w, p.style(Styles.Title, text))
}

// Muted prints a muted line.
func (p *Printer) Muted(text string) {
	fmt.Fprintln(p.w, p.style(Styles.Muted, text))
}

// Failure prints an error line prefixed with the error icon.
func (p *Printer) Failure(label string, err error) {
	fmt.Fprintf(p.w, "%s %s: %s\n", p.Icon(IconError), label, p.style(Styles.Error, err.Error()))
}

// Box prints content in a bordered box. Plain mode prints the title and
// content without a border.
func (p *Printer) Box(title, content string) {
	if p.plain {
		fmt.Fprintln(p.w, title)
		fmt.Fprintln(p.w, content)
		return
	}
	body := Styles.Title.Render(title) + "\n" + content
	fmt.Fprintln(p.w, Styles.Box.Render(body))
}

// Recommendation prints the command tuple on one line.
func (p *Printer) Recommendation(label string, rec policy.Recommendation, level risk.Level) {
	icon := IconSuccess
	if rec.Action != policy.ActionMaintain {
		icon = IconWarning
	}
	prefix := ""
	if label != "" {
		prefix = p.style(Styles.Bold, label) + " "
	}
	fmt.Fprintf(p.w, "%s %s%s %s throttle=%.2f steer=%.2f brake=%.2f risk=%.2f (%s)\n",
		p.Icon(icon), prefix, IconArrow, p.Action(rec.Action),
		rec.Throttle, rec.Steer, rec.Brake, rec.RiskScore, p.Level(level))
	fmt.Fprintf(p.w, "  %s\n", p.style(Styles.Muted, rec.Notes))
}

// Assessment prints the sub-risk breakdown and the nearest threat.
func (p *Printer) Assessment(a risk.Assessment) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s score %.4f  level %s\n", IconBullet, a.Score, p.Level(a.Level))
	rows := []struct {
		name  string
		value float64
	}{
		{"external proximity", a.SubScores.ExternalProximity},
		{"collision intensity", a.SubScores.CollisionIntensity},
		{"speed excess", a.SubScores.SpeedExcess},
		{"lane invasion", a.SubScores.LaneInvasion},
		{"yaw rate", a.SubScores.YawRate},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "  %-20s %.2f %s\n", r.name, r.value, ProgressBar(r.value, 20))
	}
	switch {
	case a.Threat.ExternalRisk:
		fmt.Fprintf(&b, "%s threat at bearing %.1f°, steer correction %.1f°", IconBullet, a.Threat.Bearing, a.Threat.SteerCorrection)
	case a.Threat.NearestIndex >= 0:
		fmt.Fprintf(&b, "%s nearest vehicle %.1fm, outside the forward cone or range", IconBullet, a.Threat.MinDistance)
	default:
		fmt.Fprintf(&b, "%s no vehicles reported", IconBullet)
	}
	p.Box("Risk breakdown (algorithm "+a.AlgorithmVersion+")", b.String())
}

// ProgressBar renders a fraction in [0,1] as a fixed-width bar.
func ProgressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
