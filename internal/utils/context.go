package utils

import "context"

// GetString reads a string context value. Empty values count as absent.
func GetString(ctx context.Context, key any) (string, bool) {
	s, _ := ctx.Value(key).(string)
	return s, s != ""
}
