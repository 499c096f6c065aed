package util

// MaxLogBodySize is the default maximum body size shown in logs and errors.
const MaxLogBodySize = 10 * 1024

// TruncateBody cuts data to maxSize bytes, appending "...(truncated)" when it
// was cut. maxSize <= 0 means MaxLogBodySize.
func TruncateBody(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxLogBodySize
	}
	if len(data) > maxSize {
		return data[:maxSize] + "...(truncated)"
	}
	return data
}
