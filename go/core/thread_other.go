//go:build !linux
// +build !linux

package core

// no portable thread id; IsSelf() always reports false
func gettid() int32 {
	return 0
}
