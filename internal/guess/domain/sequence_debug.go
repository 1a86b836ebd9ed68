//go:build debug

package domain

const panicOnSequenceError = true
