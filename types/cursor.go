package types

// NextEmptyIndex returns the index of the first field without a value, or -1.
func NextEmptyIndex(fields []Field) int {
	for i := range fields {
		if !fields[i].Filled() {
			return i
		}
	}
	return -1
}

// NextEmptyField returns a copy of the first field without a value.
// The second result is false once every field is filled.
func NextEmptyField(fields []Field) (*Field, bool) {
	idx := NextEmptyIndex(fields)
	if idx < 0 {
		return nil, false
	}
	field := fields[idx]
	return &field, true
}

func FilledFields(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, field := range fields {
		if field.Filled() {
			out = append(out, field)
		}
	}
	return out
}

// IsFirstQuestion reports whether the next question opens the conversation:
// nothing collected yet and only the respondent's opening message in the transcript.
func IsFirstQuestion(filledCount, transcriptLen int) bool {
	return filledCount == 0 && transcriptLen == 1
}
