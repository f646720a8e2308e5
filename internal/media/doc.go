// Package media shells out to yt-dlp and ffmpeg for audio download and
// fixed-length segmenting.
package media
