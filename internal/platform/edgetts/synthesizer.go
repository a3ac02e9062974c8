// Package edgetts narrates podcast scripts with the Microsoft Edge read-aloud
// service over a websocket and returns MP3 audio.
package edgetts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/edumind-api/internal/config"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/generation"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
)

const (
	outputFormat = "audio-24khz-48kbitrate-mono-mp3"
	dialAttempts = 3
	// Seconds between 1601-01-01 and the Unix epoch.
	windowsEpochOffset = 11644473600
)

var (
	speakerLabel = regexp.MustCompile(`(?m)^[A-Za-z]+(\s*\([^)]+\))?:\s*`)
	stageCue     = regexp.MustCompile(`\[[^\]]*\]|\*+`)
	spaces       = regexp.MustCompile(`[ \t]+`)
)

// Synthesizer implements generation.Synthesizer.
type Synthesizer struct {
	cfg       config.TTSConfig
	dialer    *websocket.Dialer
	now       func() time.Time
	retryWait time.Duration
	logger    *slog.Logger
}

var _ generation.Synthesizer = (*Synthesizer)(nil)

// NewSynthesizer creates a Synthesizer from cfg.
func NewSynthesizer(cfg config.TTSConfig, log *slog.Logger) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxChunkBytes <= 0 {
		cfg.MaxChunkBytes = 4096
	}
	return &Synthesizer{
		cfg:       cfg,
		dialer:    &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		now:       time.Now,
		retryWait: 500 * time.Millisecond,
		logger:    log.With("component", "edge_tts"),
	}
}

// Synthesize narrates text with the voice chosen by opts. Long scripts are
// split at sentence boundaries and the MP3 segments are concatenated.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts domain.VoiceOptions) ([]byte, error) {
	text = CleanScript(text)
	if text == "" {
		return nil, generation.ErrEmptyInput
	}
	voice := VoiceFor(opts, s.cfg.DefaultVoice)
	chunks := SplitText(text, s.cfg.MaxChunkBytes)
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Info("synthesizing speech", "voice", voice, "chars", len(text), "chunks", len(chunks))

	var audio bytes.Buffer
	for i, chunk := range chunks {
		data, err := s.synthesizeChunk(ctx, voice, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Error("speech synthesis failed", "chunk", i, "voice", voice, "error", err)
			return nil, fmt.Errorf("%w: chunk %d: %v", generation.ErrSynthesisFailed, i, err)
		}
		audio.Write(data)
	}
	return audio.Bytes(), nil
}

func (s *Synthesizer) synthesizeChunk(ctx context.Context, voice, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	// Closing the connection unblocks a pending read when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfigMessage())); err != nil {
		return nil, fmt.Errorf("failed to send speech.config: %w", err)
	}
	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMessage(requestID, voice, text))); err != nil {
		return nil, fmt.Errorf("failed to send ssml: %w", err)
	}
	return readAudio(ctx, conn)
}

func (s *Synthesizer) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Origin", s.cfg.Origin)
	header.Set("User-Agent", s.cfg.UserAgent)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("Accept-Language", "en-US,en;q=0.9")
	header.Set("Cookie", "muid="+strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")))

	endpoint := s.endpointURL()
	var lastErr error
	for attempt := 0; attempt < dialAttempts; attempt++ {
		conn, resp, err := s.dialer.DialContext(ctx, endpoint, header)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if resp != nil {
			logger.FromContextOrDefault(ctx, s.logger).Warn("edge tts handshake failed",
				"status_code", resp.StatusCode, "attempt", attempt+1)
		}
		if attempt == dialAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryWait):
		}
	}
	return nil, fmt.Errorf("websocket dial failed after %d attempts: %w", dialAttempts, lastErr)
}

func (s *Synthesizer) endpointURL() string {
	q := url.Values{}
	q.Set("TrustedClientToken", s.cfg.TrustedClientToken)
	q.Set("Sec-MS-GEC", secMSGEC(s.now(), s.cfg.TrustedClientToken))
	q.Set("Sec-MS-GEC-Version", s.cfg.GECVersion)
	q.Set("ConnectionId", strings.ReplaceAll(uuid.NewString(), "-", ""))
	return s.cfg.Endpoint + "?" + q.Encode()
}

// secMSGEC derives the rolling request token: the Windows file time rounded
// down to five minutes, concatenated with the client token and hashed.
func secMSGEC(now time.Time, trustedClientToken string) string {
	ticks := now.Unix() + windowsEpochOffset
	ticks -= ticks % 300
	ticks *= 10_000_000
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%s", ticks, trustedClientToken)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func speechConfigMessage() string {
	return "X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false",` +
		`"wordBoundaryEnabled":"false"},"outputFormat":"` + outputFormat + `"}}}}`
}

func ssmlMessage(requestID, voice, text string) string {
	return fmt.Sprintf("X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nX-Timestamp:%s\r\nPath:ssml\r\n\r\n%s",
		requestID, timestamp(), buildSSML(voice, text))
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}

func buildSSML(voice, text string) string {
	escaped := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	).Replace(text)
	return fmt.Sprintf("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>"+
		"<voice name='%s'><prosody pitch='+0Hz' rate='+0%%' volume='+0%%'>%s</prosody></voice></speak>", voice, escaped)
}

// readAudio collects binary audio frames until the service signals turn.end.
func readAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var audio bytes.Buffer
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read message failed: %w", err)
		}
		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				if audio.Len() == 0 {
					return nil, errors.New("no audio received")
				}
				return audio.Bytes(), nil
			}
		case websocket.BinaryMessage:
			audio.Write(audioPayload(data))
		}
	}
}

// audioPayload strips the header from a binary frame. The first two bytes
// hold the big-endian header length.
func audioPayload(data []byte) []byte {
	if len(data) < 2 {
		return nil
	}
	headerLen := int(data[0])<<8 | int(data[1])
	if len(data) < 2+headerLen {
		return nil
	}
	return data[2+headerLen:]
}

// CleanScript removes speaker labels, bracketed cues and markdown emphasis
// so only narration is spoken.
func CleanScript(text string) string {
	text = speakerLabel.ReplaceAllString(text, "")
	text = stageCue.ReplaceAllString(text, "")
	text = spaces.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// SplitText splits text into chunks of at most maxBytes, preferring
// sentence ends, then whitespace, and never splitting a rune.
func SplitText(text string, maxBytes int) []string {
	var chunks []string
	for len(text) > maxBytes {
		cut := breakPoint(text, maxBytes)
		if chunk := strings.TrimSpace(text[:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text = strings.TrimSpace(text); text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// breakPoint returns the byte offset at which to cut text so the head fits
// in maxBytes. len(text) must exceed maxBytes.
func breakPoint(text string, maxBytes int) int {
	window := text[:maxBytes]
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if i := strings.LastIndex(window, sep); i > maxBytes/2 {
			return i + len(sep)
		}
	}
	if i := strings.LastIndexAny(window, " \t"); i > 0 {
		return i + 1
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(text)
		return size
	}
	return cut
}
