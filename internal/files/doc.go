// Package files reads meeting transcripts from a local directory as
// pipeline items. Plain text, Markdown and HTML files are passed through;
// WebVTT and SubRip captions are flattened to their cue text.
package files
