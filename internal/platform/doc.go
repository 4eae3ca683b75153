// Package platform contains the glue between the application and the
// external download tool: locating the program, building its command lines,
// classifying the lines it prints, and the filesystem helpers around the
// files it writes.
package platform
