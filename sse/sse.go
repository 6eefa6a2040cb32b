package sse

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Stream writes raw SSE lines in the form:
//
//	data: <token>\n\n
//
// and finishes with:
//
//	data: [DONE]\n\n
//
// matching the frontend's plain 'data:' line parsing.
func Stream(c *gin.Context, ch <-chan string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	for msg := range ch {
		// Multi-line tokens: every line needs its own 'data: ' prefix or
		// the client drops content at the newline. The newline itself is
		// re-attached to each line except the last so nothing is lost.
		lines := strings.Split(msg, "\n")
		for i, line := range lines {
			token := line
			if i < len(lines)-1 {
				token += "\n"
			}
			_, _ = c.Writer.Write([]byte("data: " + token + "\n"))
		}
		_, _ = c.Writer.Write([]byte("\n"))
		flusher.Flush()
	}
	_, _ = c.Writer.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

// Chunked feeds a completed reply through a channel in word chunks so a
// non-streaming backend call can still render progressively in the chat
// UI.
func Chunked(text string, size int) <-chan string {
	if size <= 0 {
		size = 24
	}
	ch := make(chan string)
	go func() {
		defer close(ch)
		words := strings.SplitAfter(text, " ")
		var b strings.Builder
		for _, w := range words {
			b.WriteString(w)
			if b.Len() >= size {
				ch <- b.String()
				b.Reset()
			}
		}
		if b.Len() > 0 {
			ch <- b.String()
		}
	}()
	return ch
}
