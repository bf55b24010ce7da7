// Package model provides the data structures shared by the multi package, its hooks and its backends.
// It defines the persistence contract an operation pipeline commits through,
// the records and datasets operations act upon, and the hook interface used to observe a commit.
package model
