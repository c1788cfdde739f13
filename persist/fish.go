// Package persist implements the .fish chain file codec: a textual,
// line-oriented encoding of a chain.Chain with a fixed header and one
// record per block, each hex field lowercase and each block chained to
// the previous one by a previous_hash field.
package persist

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/dreamer-coding/fossil-jellyfish/block"
	"github.com/dreamer-coding/fossil-jellyfish/chain"
)

// Signature is the fixed magic value stored in every .fish file's header.
const Signature = "JFS1"

// SaveVersion is the version string written by Save.
const SaveVersion = "1.0.0"

// acceptedLoadVersions lists every version string Load tolerates.
var acceptedLoadVersions = map[string]bool{
	"1.0.0": true,
	"0.1":   true,
}

// MaxFileBytes is the largest .fish file Load will read.
const MaxFileBytes = 1 << 20

// Save writes c to path as a .fish document, via an atomic
// write-to-temp-then-rename so readers never observe a partial file.
func Save(c *chain.Chain, path string) error {
	if c == nil {
		return chain.NewError(chain.ErrInvalidArgument, "nil chain")
	}

	var buf bytes.Buffer
	writeHeaderLine(&buf, "signature", quote(Signature))
	writeHeaderLine(&buf, "version", quote(SaveVersion))
	writeHeaderLine(&buf, "origin_device_id", hex.EncodeToString(c.DeviceID[:]))
	writeHeaderLine(&buf, "created_at", strconv.FormatUint(c.CreatedAt, 10))
	writeHeaderLine(&buf, "updated_at", strconv.FormatUint(c.UpdatedAt, 10))

	valid := c.ValidBlocks()
	writeHeaderLine(&buf, "blocks", strconv.Itoa(len(valid)))

	var previousHash [block.FingerprintSize]byte
	for i, b := range valid {
		writeBlockRecord(&buf, i, &b, previousHash)
		previousHash = b.Hash
	}

	return atomic.WriteFile(path, &buf)
}

func writeHeaderLine(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s=%s\n", key, value)
}

func writeBlockRecord(buf *bytes.Buffer, index int, b *block.Block, previousHash [block.FingerprintSize]byte) {
	fmt.Fprintf(buf, "block_index=%d\n", index)
	fmt.Fprintf(buf, "input=%s\n", quote(b.Input.String()))
	fmt.Fprintf(buf, "output=%s\n", quote(b.Output.String()))
	fmt.Fprintf(buf, "hash=%s\n", hex.EncodeToString(b.Hash[:]))
	fmt.Fprintf(buf, "previous_hash=%s\n", hex.EncodeToString(previousHash[:]))
	fmt.Fprintf(buf, "timestamp=%d\n", b.Timestamp)
	fmt.Fprintf(buf, "delta_ms=%d\n", b.DeltaMs)
	fmt.Fprintf(buf, "duration_ms=%d\n", b.DurationMs)
	fmt.Fprintf(buf, "valid=%d\n", b.Valid)
	fmt.Fprintf(buf, "confidence=%.6f\n", b.Confidence)
	fmt.Fprintf(buf, "usage_count=%d\n", b.UsageCount)
	fmt.Fprintf(buf, "device_id=%s\n", hex.EncodeToString(b.DeviceID[:]))
	fmt.Fprintf(buf, "signature=%s\n", hex.EncodeToString(b.Signature[:]))
}

// Load reads path as a .fish document and returns the chain it describes.
// The whole file is read in a single call and rejected outright if it
// exceeds MaxFileBytes; any malformed key, count mismatch, bad hex, or
// broken previous_hash linkage fails the entire load — there is no
// partial result.
func Load(path string) (*chain.Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, chain.NewError(chain.ErrIOFailure, err.Error())
	}
	if len(data) > MaxFileBytes {
		return nil, chain.NewError(chain.ErrIOFailure, "file exceeds 1 MiB limit")
	}
	return parseFish(data)
}

type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func newLineReader(data []byte) *lineReader {
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(make([]byte, 0, 64*1024), MaxFileBytes)
	return &lineReader{scanner: s}
}

// next returns the next non-empty key/value pair, splitting on the first
// '='. Blank lines are skipped. ok is false once the input is exhausted.
func (r *lineReader) next() (key, value string, ok bool, err error) {
	for r.scanner.Scan() {
		r.line++
		raw := strings.TrimRight(r.scanner.Text(), "\r")
		if raw == "" {
			continue
		}
		idx := strings.IndexByte(raw, '=')
		if idx < 0 {
			return "", "", false, fmt.Errorf("line %d: missing '='", r.line)
		}
		return raw[:idx], raw[idx+1:], true, nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", "", false, err
	}
	return "", "", false, nil
}

func (r *lineReader) expect(want string) (string, error) {
	key, value, ok, err := r.next()
	if err != nil {
		return "", err
	}
	if !ok || key != want {
		return "", fmt.Errorf("expected key %q, got %q", want, key)
	}
	return value, nil
}

func parseFish(data []byte) (*chain.Chain, error) {
	r := newLineReader(data)

	sig, err := r.expect("signature")
	if err != nil {
		return nil, parseFailure(err)
	}
	sig, err = unquote(sig)
	if err != nil || sig != Signature {
		return nil, parseFailure(fmt.Errorf("bad signature %q", sig))
	}

	version, err := r.expect("version")
	if err != nil {
		return nil, parseFailure(err)
	}
	version, err = unquote(version)
	if err != nil || !acceptedLoadVersions[version] {
		return nil, parseFailure(fmt.Errorf("unsupported version %q", version))
	}

	deviceIDHex, err := r.expect("origin_device_id")
	if err != nil {
		return nil, parseFailure(err)
	}
	var deviceID [block.DeviceIDSize]byte
	if err := parseHexFixed(deviceIDHex, deviceID[:]); err != nil {
		return nil, parseFailure(err)
	}

	createdAtStr, err := r.expect("created_at")
	if err != nil {
		return nil, parseFailure(err)
	}
	createdAt, err := strconv.ParseUint(createdAtStr, 10, 64)
	if err != nil {
		return nil, parseFailure(err)
	}

	updatedAtStr, err := r.expect("updated_at")
	if err != nil {
		return nil, parseFailure(err)
	}
	updatedAt, err := strconv.ParseUint(updatedAtStr, 10, 64)
	if err != nil {
		return nil, parseFailure(err)
	}

	blocksStr, err := r.expect("blocks")
	if err != nil {
		return nil, parseFailure(err)
	}
	blockCount, err := strconv.Atoi(blocksStr)
	if err != nil || blockCount < 0 || blockCount > chain.MaxMemory {
		return nil, parseFailure(fmt.Errorf("invalid block count %q", blocksStr))
	}

	c := chain.New(deviceID)
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt

	var previousHash [block.FingerprintSize]byte
	for i := 0; i < blockCount; i++ {
		b, err := parseBlockRecord(r, i, previousHash)
		if err != nil {
			return nil, parseFailure(err)
		}
		c.Blocks[i] = *b
		previousHash = b.Hash
	}
	c.Count = blockCount

	return c, nil
}

func parseBlockRecord(r *lineReader, wantIndex int, previousHash [block.FingerprintSize]byte) (*block.Block, error) {
	indexStr, err := r.expect("block_index")
	if err != nil {
		return nil, err
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil || index != wantIndex {
		return nil, fmt.Errorf("block_index %q, want %d", indexStr, wantIndex)
	}

	inputQ, err := r.expect("input")
	if err != nil {
		return nil, err
	}
	input, err := unquote(inputQ)
	if err != nil {
		return nil, err
	}

	outputQ, err := r.expect("output")
	if err != nil {
		return nil, err
	}
	output, err := unquote(outputQ)
	if err != nil {
		return nil, err
	}

	var b block.Block
	b.Input.Set(input)
	b.Output.Set(output)

	hashHex, err := r.expect("hash")
	if err != nil {
		return nil, err
	}
	if err := parseHexFixed(hashHex, b.Hash[:]); err != nil {
		return nil, err
	}

	prevHashHex, err := r.expect("previous_hash")
	if err != nil {
		return nil, err
	}
	var gotPrev [block.FingerprintSize]byte
	if err := parseHexFixed(prevHashHex, gotPrev[:]); err != nil {
		return nil, err
	}
	if gotPrev != previousHash {
		return nil, fmt.Errorf("block %d: previous_hash does not chain to the prior block", wantIndex)
	}

	timestampStr, err := r.expect("timestamp")
	if err != nil {
		return nil, err
	}
	b.Timestamp, err = strconv.ParseUint(timestampStr, 10, 64)
	if err != nil {
		return nil, err
	}

	deltaStr, err := r.expect("delta_ms")
	if err != nil {
		return nil, err
	}
	delta, err := strconv.ParseUint(deltaStr, 10, 32)
	if err != nil {
		return nil, err
	}
	b.DeltaMs = uint32(delta)

	durationStr, err := r.expect("duration_ms")
	if err != nil {
		return nil, err
	}
	duration, err := strconv.ParseUint(durationStr, 10, 32)
	if err != nil {
		return nil, err
	}
	b.DurationMs = uint32(duration)

	validStr, err := r.expect("valid")
	if err != nil {
		return nil, err
	}
	validN, err := strconv.Atoi(validStr)
	if err != nil {
		return nil, err
	}
	b.Valid = uint8(validN)

	confidenceStr, err := r.expect("confidence")
	if err != nil {
		return nil, err
	}
	b.Confidence, err = strconv.ParseFloat(confidenceStr, 64)
	if err != nil {
		return nil, err
	}

	usageStr, err := r.expect("usage_count")
	if err != nil {
		return nil, err
	}
	usage, err := strconv.ParseUint(usageStr, 10, 32)
	if err != nil {
		return nil, err
	}
	b.UsageCount = uint32(usage)

	deviceIDHex, err := r.expect("device_id")
	if err != nil {
		return nil, err
	}
	if err := parseHexFixed(deviceIDHex, b.DeviceID[:]); err != nil {
		return nil, err
	}

	sigHex, err := r.expect("signature")
	if err != nil {
		return nil, err
	}
	if err := parseHexFixed(sigHex, b.Signature[:]); err != nil {
		return nil, err
	}

	return &b, nil
}

func parseHexFixed(s string, dst []byte) error {
	if len(s) != len(dst)*2 {
		return fmt.Errorf("hex field has length %d, want %d", len(s), len(dst)*2)
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	copy(dst, decoded)
	return nil
}

func parseFailure(cause error) error {
	return chain.NewError(chain.ErrParseFailure, cause.Error())
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("value %q is not quoted", s)
	}
	inner := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			return "", fmt.Errorf("unterminated escape sequence")
		}
		switch inner[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		default:
			return "", fmt.Errorf("invalid escape sequence \\%c", inner[i])
		}
	}
	return b.String(), nil
}
