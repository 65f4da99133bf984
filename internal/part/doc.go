// Package part defines cell types and the views their behavior is written
// against.
//
// A Part is immutable once built: its property schema seeds the properties of
// every cell it is placed on, and its delegate table (cycle, draw and named
// actions) is shared. Delegates receive a Cell view bound to one cell for the
// duration of a call; they never hold on to it.
package part
