package ingest

import (
	"fmt"
	"strings"

	"github.com/callwise/callwise/pkg/store"
)

// Call phase labels assigned by annotation.
const (
	PhaseGreeting  = "greeting"
	PhaseDiscovery = "discovery"
	PhaseDemo      = "demo"
	PhaseObjection = "objection"
	PhasePricing   = "pricing"
	PhaseClosing   = "closing"
	PhaseGeneral   = "general"
)

// splitSegments parses raw transcript text into speaker turns. Lines of the
// form "Speaker: text" open a new turn; other non-empty lines continue the
// previous turn, or open an unattributed one if none exists.
func splitSegments(raw string) []Segment {
	var segs []Segment
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		speaker, rest, ok := strings.Cut(line, ":")
		speaker = strings.TrimSpace(speaker)
		if ok && speaker != "" && len(speaker) <= 40 && !strings.ContainsAny(speaker, ".!?") {
			segs = append(segs, Segment{Speaker: speaker, Text: strings.TrimSpace(rest)})
			continue
		}

		if len(segs) == 0 {
			segs = append(segs, Segment{Speaker: "Unknown", Text: line})
			continue
		}
		last := &segs[len(segs)-1]
		last.Text = strings.TrimSpace(last.Text + " " + line)
	}
	return segs
}

var phaseHints = []struct {
	phase string
	hints []string
}{
	{PhasePricing, []string{"price", "pricing", "cost", "discount", "quote", "budget", "per seat", "license"}},
	{PhaseObjection, []string{"concern", "worried", "hesitat", "not sure", "competitor", "objection", "risk"}},
	{PhaseDemo, []string{"demo", "show you", "screen", "feature", "walkthrough", "let me show"}},
	{PhaseClosing, []string{"next step", "follow up", "contract", "sign", "send over", "schedule", "proposal"}},
	{PhaseDiscovery, []string{"tell me about", "how do you", "currently", "challenge", "pain", "team size", "workflow", "what are you"}},
	{PhaseGreeting, []string{"hi ", "hello", "thanks for joining", "good morning", "good afternoon", "how are you"}},
}

// classifyPhase labels one speaker turn with a call phase by keyword.
// Hints are checked in priority order so a pricing discussion that also
// greets does not read as a greeting.
func classifyPhase(text string) string {
	lower := strings.ToLower(text)
	for _, ph := range phaseHints {
		for _, hint := range ph.hints {
			if strings.Contains(lower, hint) {
				return ph.phase
			}
		}
	}
	return PhaseGeneral
}

// renderSegment formats one turn the way chunks and prompts present it.
func renderSegment(s Segment) string {
	if s.Phase != "" {
		return fmt.Sprintf("[%s] %s: %s", s.Phase, s.Speaker, s.Text)
	}
	return fmt.Sprintf("%s: %s", s.Speaker, s.Text)
}

// chunkSegments windows the rendered transcript into bounded chunks of at
// most size runes, overlapping by overlap runes so a statement cut at a
// boundary still appears whole in one chunk. Sequence numbers start at zero.
func chunkSegments(segs []Segment, size, overlap int) []store.Chunk {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	lines := make([]string, len(segs))
	for i, s := range segs {
		lines[i] = renderSegment(s)
	}
	runes := []rune(strings.Join(lines, "\n"))
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	var chunks []store.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, store.Chunk{
			Seq:  len(chunks),
			Text: string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// parseExtraction consumes the line-oriented extraction response. Malformed
// lines are dropped rather than failing the whole extraction.
func parseExtraction(content string) store.Extraction {
	var ex store.Extraction
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if rest, ok := strings.CutPrefix(line, "ENTITY "); ok {
			name, kind, ok := strings.Cut(rest, "|")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				continue
			}
			ex.Entities = append(ex.Entities, store.Entity{
				Name: name,
				Kind: strings.TrimSpace(kind),
			})
			continue
		}

		if rest, ok := strings.CutPrefix(line, "FACT "); ok {
			parts := strings.SplitN(rest, "|", 3)
			if len(parts) != 3 {
				continue
			}
			f := store.Fact{
				Subject:  strings.TrimSpace(parts[0]),
				Relation: strings.TrimSpace(parts[1]),
				Object:   strings.TrimSpace(parts[2]),
			}
			if f.Subject == "" || f.Relation == "" || f.Object == "" {
				continue
			}
			ex.Facts = append(ex.Facts, f)
		}
	}
	return ex
}
