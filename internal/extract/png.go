package extract

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// metadataChunks are the PNG chunk types whose payloads are read in full.
var metadataChunks = map[string]bool{
	"tEXt": true,
	"iTXt": true,
	"tIME": true,
	"eXIf": true,
}

// pngFields walks PNG chunks and collects textual metadata (tEXt/iTXt),
// the tIME modification stamp, and any embedded eXIf blob. Non-PNG input
// and torn chunk streams both yield whatever was parsed so far.
func pngFields(data []byte) map[string]string {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}

	br := bufio.NewReader(bytes.NewReader(data[len(pngSignature):]))
	fields := make(map[string]string)

	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			break
		}
		length := binary.BigEndian.Uint32(lenBuf)

		typeBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, typeBuf); err != nil {
			break
		}
		chunkName := string(typeBuf)

		if !metadataChunks[chunkName] {
			if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
				break
			}
			if chunkName == "IEND" {
				break
			}
			continue
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(br, payload); err != nil {
			break
		}
		// A truncated CRC still leaves a parseable payload; the next
		// length read will terminate the walk.
		_, _ = io.CopyN(io.Discard, br, 4)

		switch chunkName {
		case "tEXt", "iTXt":
			key, value := parsePNGText(chunkName, payload)
			if key != "" {
				fields[key] = value
			}
		case "tIME":
			if ts := formatPNGTime(payload); ts != "" {
				fields["DateTime"] = ts
			}
		case "eXIf":
			for name, value := range tiffFields(payload) {
				fields[name] = value
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// parsePNGText splits a tEXt or iTXt payload into key and value. A
// compressed iTXt value is recorded as empty rather than inflated.
func parsePNGText(chunkName string, payload []byte) (string, string) {
	idx := bytes.IndexByte(payload, 0)
	if idx <= 0 {
		return "", ""
	}
	key := string(payload[:idx])
	rest := payload[idx+1:]

	if chunkName == "tEXt" {
		return key, string(rest)
	}

	// iTXt: compression flag, compression method, then language tag and
	// translated keyword, each NUL-terminated, then the text.
	if len(rest) < 2 {
		return key, ""
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	for i := 0; i < 2; i++ {
		n := bytes.IndexByte(rest, 0)
		if n < 0 {
			return key, ""
		}
		rest = rest[n+1:]
	}
	if compressed {
		return key, ""
	}
	return key, string(rest)
}

func formatPNGTime(payload []byte) string {
	if len(payload) != 7 {
		return ""
	}
	year := binary.BigEndian.Uint16(payload[:2])
	return fmt.Sprintf("%04d:%02d:%02d %02d:%02d:%02d",
		year, payload[2], payload[3], payload[4], payload[5], payload[6])
}
