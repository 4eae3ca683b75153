package model

// Package model defines domain data structures used across the app: output
// lines captured from supervised processes, process and task states, and
// download/compression task records. Structures are plain values with explicit
// state transitions.
