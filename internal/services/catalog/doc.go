// Package catalog looks up video metadata and caption tracks from the
// external video catalog API and parses watch URLs into video identifiers.
package catalog
