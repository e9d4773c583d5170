//go:build windows

package preflight

func accessReadWrite(string) error { return nil }
