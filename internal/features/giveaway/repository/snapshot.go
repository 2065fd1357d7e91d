package repository

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

const (
	fieldSeparator = "  "
	nullPrize      = "null"
)

// EncodeSnapshot renders one line per giveaway:
//
//	channelId  messageId  endTime  winnerCount  prize
//
// with the literal "null" standing in for a missing prize.
func EncodeSnapshot(records []models.Record) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		prize := models.SanitizePrize(r.Prize)
		if prize == "" {
			prize = nullPrize
		}
		buf.WriteString(r.ChannelID)
		buf.WriteString(fieldSeparator)
		buf.WriteString(r.MessageID)
		buf.WriteString(fieldSeparator)
		buf.WriteString(r.EndTime.Format(time.RFC3339Nano))
		buf.WriteString(fieldSeparator)
		buf.WriteString(strconv.Itoa(r.WinnerCount))
		buf.WriteString(fieldSeparator)
		buf.WriteString(prize)
		buf.WriteByte('\n')
	}
	return bytes.TrimSpace(buf.Bytes())
}

// LineError describes a snapshot line that could not be decoded.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("snapshot line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// DecodeSnapshot parses the snapshot written by EncodeSnapshot. Bad lines are
// reported individually and never stop the remaining lines from loading.
func DecodeSnapshot(data []byte) ([]models.Record, []error) {
	var (
		records []models.Record
		errs    []error
	)
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		r, err := DecodeLine(line)
		if err != nil {
			errs = append(errs, &LineError{Line: i + 1, Text: line, Err: err})
			continue
		}
		records = append(records, r)
	}
	return records, errs
}

// DecodeLine parses a single snapshot line. A legacy line carries only four
// fields (no winner count) and defaults to one winner; when the fourth field of
// a five-field line is not a number the line is legacy too and the prize
// simply contained a double space.
func DecodeLine(line string) (models.Record, error) {
	parts := strings.SplitN(line, fieldSeparator, 5)
	if len(parts) < 4 {
		return models.Record{}, fmt.Errorf("expected at least 4 fields, got %d", len(parts))
	}

	end, err := time.Parse(time.RFC3339Nano, parts[2])
	if err != nil {
		return models.Record{}, fmt.Errorf("parse end time: %w", err)
	}

	r := models.Record{
		ChannelID:   parts[0],
		MessageID:   parts[1],
		EndTime:     end,
		WinnerCount: 1,
	}
	switch {
	case len(parts) == 4:
		r.Prize = parts[3]
	default:
		if n, err := strconv.Atoi(parts[3]); err == nil {
			r.WinnerCount = n
			r.Prize = parts[4]
		} else {
			r.Prize = parts[3] + fieldSeparator + parts[4]
		}
	}
	if r.Prize == nullPrize {
		r.Prize = ""
	}
	if r.ChannelID == "" || r.MessageID == "" {
		return models.Record{}, fmt.Errorf("empty channel or message id")
	}
	return r, nil
}
