package pipeline

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\x{00a0}]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)

	replacementChar = []byte(string(utf8.RuneError))
)

// DecodeText turns raw content into normalized UTF-8 text. It applies the
// transfer encoding, the declared charset and, for HTML, strips markup.
// Every failure wraps ErrDecode; content is never truncated.
func DecodeText(raw []byte, encoding, charset, mediaType string) (string, error) {
	data, err := decodeTransfer(raw, encoding)
	if err != nil {
		return "", err
	}

	data, err = decodeCharset(data, charset)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: invalid UTF-8 at byte %d", ErrDecode, firstInvalidUTF8(data))
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return "", fmt.Errorf("%w: binary payload (NUL byte at %d)", ErrDecode, i)
	}

	text := strings.TrimPrefix(string(data), "\ufeff")

	if strings.EqualFold(mediaType, MediaTypeHTML) {
		text, err = htmlToText(text)
		if err != nil {
			return "", err
		}
	}

	return normalizeText(norm.NFC.String(text)), nil
}

func decodeTransfer(raw []byte, encoding string) ([]byte, error) {
	var encodings []*base64.Encoding
	switch strings.ToLower(encoding) {
	case EncodingNone:
		return raw, nil
	case EncodingBase64:
		encodings = []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding}
	case EncodingBase64URL:
		encodings = []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding}
	default:
		return nil, fmt.Errorf("%w: unknown transfer encoding %q", ErrDecode, encoding)
	}

	compact := bytes.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	var lastErr error
	for _, enc := range encodings {
		out := make([]byte, enc.DecodedLen(len(compact)))
		n, err := enc.Decode(out, compact)
		if err == nil {
			return out[:n], nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrDecode, encoding, lastErr)
}

func decodeCharset(data []byte, charset string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return data, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown charset %q", ErrDecode, charset)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: charset %s: %v", ErrDecode, charset, err)
	}
	// Decoders substitute U+FFFD for bytes they cannot map.
	if n := bytes.Count(out, replacementChar); n > encodedReplacements(enc, data) {
		return nil, fmt.Errorf("%w: charset %s: %d byte sequences have no mapping", ErrDecode, charset, n-encodedReplacements(enc, data))
	}
	return out, nil
}

// encodedReplacements counts the U+FFFD characters the source itself carries
// in charset enc.
func encodedReplacements(enc encoding.Encoding, data []byte) int {
	seq, err := enc.NewEncoder().Bytes(replacementChar)
	if err != nil || len(seq) == 0 {
		return 0
	}
	return bytes.Count(data, seq)
}

func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", ErrDecode, err)
	}

	doc.Find("script, style, head, noscript, template").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6, blockquote, pre, table").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text(), nil
	}
	return body.Text(), nil
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}

func firstInvalidUTF8(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
