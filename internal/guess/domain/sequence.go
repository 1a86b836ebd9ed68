//go:build !debug

package domain

const panicOnSequenceError = false
