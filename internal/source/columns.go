package source

import "github.com/TimelordUK/logsrc/internal/index"

// Column names one per-line field a caller can ask for.
type Column int

const (
	ColumnRawContent Column = iota
	// ColumnIndex is the zero-based position of the line in the source.
	ColumnIndex
	// ColumnLineNumber is the one-based line number.
	ColumnLineNumber
	// ColumnOffset is the byte offset of the line start.
	ColumnOffset
	// ColumnLogEntryIndex equals ColumnIndex: every line is one entry.
	ColumnLogEntryIndex
)

var columnNames = map[Column]string{
	ColumnRawContent:    "raw_content",
	ColumnIndex:         "index",
	ColumnLineNumber:    "line_number",
	ColumnOffset:        "offset",
	ColumnLogEntryIndex: "log_entry_index",
}

func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return "unknown"
}

// Entry is one line as returned by Entries. Positions that could not be
// served hold the invalid values: -1 for Index, LineNumber, Offset and
// LogEntryIndex, and an empty RawContent.
type Entry struct {
	Index         int
	LineNumber    int
	Offset        int64
	LogEntryIndex int
	RawContent    string
}

// Valid reports whether the entry refers to a line that exists.
func (e Entry) Valid() bool {
	return e.Index >= 0
}

func invalidEntry() Entry {
	return Entry{Index: -1, LineNumber: -1, Offset: index.InvalidOffset, LogEntryIndex: -1}
}

// get returns the value of col, typed as RawContent string, Offset int64 and
// int for the rest.
func (e Entry) get(col Column) any {
	switch col {
	case ColumnRawContent:
		return e.RawContent
	case ColumnIndex:
		return e.Index
	case ColumnLineNumber:
		return e.LineNumber
	case ColumnOffset:
		return e.Offset
	case ColumnLogEntryIndex:
		return e.LogEntryIndex
	}
	return nil
}
