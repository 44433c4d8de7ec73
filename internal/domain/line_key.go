package domain

// LineKey is the identity of a cart line. Two additions with an equal key
// merge into one line. Comparison is exact: no case folding or trimming.
type LineKey struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// ResolveLine returns the index of the line matching key.
func ResolveLine(lines []CartLine, key LineKey) (int, bool) {
	for i := range lines {
		if lines[i].ProductID == key.ProductID &&
			lines[i].Size == key.Size &&
			lines[i].Color == key.Color {
			return i, true
		}
	}
	return -1, false
}
