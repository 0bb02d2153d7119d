package canport

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

const (
	CR   = 0x0D
	BELL = 0x07

	standardIDWidth = 4
	extendedIDWidth = 8
	compactIDWidth  = 3 // 11 bit identifier as sent by stock slcan firmware
)

// Encode returns the slcan wire form of f:
//
//	t iiii l dd.. \r  standard
//	T iiiiiiii l dd.. \r  extended
//
// Hex digits are lower-case and zero padded to the fixed field width.
func Encode(f *CANFrame) ([]byte, error) {
	return AppendEncode(make([]byte, 0, 1+extendedIDWidth+1+2*MaxDataLength+1), f)
}

// AppendEncode appends the wire form of f to dst. On error dst is returned unchanged.
func AppendEncode(dst []byte, f *CANFrame) ([]byte, error) {
	if f == nil {
		return dst, ErrNilFrame
	}
	if err := f.Validate(); err != nil {
		return dst, err
	}

	var idb [4]byte
	var idHex [8]byte
	binary.BigEndian.PutUint32(idb[:], f.Identifier)
	hex.Encode(idHex[:], idb[:])

	if f.Extended {
		dst = append(dst, 'T')
		dst = append(dst, idHex[:]...)
	} else {
		dst = append(dst, 't')
		dst = append(dst, idHex[extendedIDWidth-standardIDWidth:]...)
	}
	dst = strconv.AppendUint(dst, uint64(len(f.Data)), 16)
	dst = hex.AppendEncode(dst, f.Data)
	return append(dst, CR), nil
}

// DecodeLine parses one complete line without its terminator. Standard
// identifiers are four hex digits, extended ones eight.
func DecodeLine(line []byte) (*CANFrame, error) {
	return decodeLine(line, standardIDWidth)
}

// DecodeCompactLine is DecodeLine for firmware that sends standard
// identifiers as three hex digits.
func DecodeCompactLine(line []byte) (*CANFrame, error) {
	return decodeLine(line, compactIDWidth)
}

func decodeLine(line []byte, stdWidth int) (*CANFrame, error) {
	var width int
	var extended bool
	switch {
	case len(line) == 0:
		return nil, &MalformedFrameError{Reason: "empty line"}
	case line[0] == 'T':
		width, extended = extendedIDWidth, true
	case line[0] == 't':
		width = stdWidth
	default:
		return nil, &MalformedFrameError{Text: string(line), Reason: "unknown marker"}
	}

	header := 1 + width + 1
	if len(line) < header {
		return nil, &TruncatedFrameError{Text: string(line), Want: header, Got: len(line)}
	}
	id, err := parseHex("identifier", line[1:1+width])
	if err != nil {
		return nil, err
	}
	dlc, err := parseHex("dlc", line[1+width:header])
	if err != nil {
		return nil, err
	}
	if dlc > MaxDataLength {
		return nil, &MalformedFrameError{Text: string(line), Reason: "dlc " + strconv.Itoa(int(dlc)) + " above 8"}
	}

	want := header + 2*int(dlc)
	if len(line) < want {
		return nil, &TruncatedFrameError{Text: string(line), Want: want, Got: len(line)}
	}
	if len(line) > want {
		return nil, &MalformedFrameError{Text: string(line), Reason: "trailing data"}
	}

	data := make([]byte, dlc)
	if _, err := hex.Decode(data, line[header:want]); err != nil {
		return nil, &InvalidHexError{Field: "data", Text: string(line[header:want])}
	}
	return &CANFrame{
		Identifier: id,
		Extended:   extended,
		Data:       data,
		FrameType:  Incoming,
	}, nil
}

// parseHex only accepts bare hex digits, no sign, prefix or separators.
func parseHex(field string, s []byte) (uint32, error) {
	for _, c := range s {
		if !isHex(c) {
			return 0, &InvalidHexError{Field: field, Text: string(s)}
		}
	}
	v, err := strconv.ParseUint(string(s), 16, 32)
	if err != nil {
		return 0, &InvalidHexError{Field: field, Text: string(s)}
	}
	return uint32(v), nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
