package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func (tokens *Tokens) ToBin(useUint32 bool) (*[]byte, error) {
	if useUint32 {
		return tokens.ToBinUint32()
	} else {
		return tokens.ToBinUint16()
	}
}

func (tokens *Tokens) ToBinUint16() (*[]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(*tokens)*TokenSize))
	for idx := range *tokens {
		bs := (*tokens)[idx]
		if bs < 0 || bs > 65535 {
			return nil, fmt.Errorf("integer overflow: tried to write token ID %d as unsigned 16-bit", bs)
		}
		err := binary.Write(buf, binary.LittleEndian, uint16(bs))
		if err != nil {
			return nil, err
		}
	}
	byt := buf.Bytes()
	return &byt, nil
}

func (tokens *Tokens) ToBinUint32() (*[]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(*tokens)*TokenSize32))
	for idx := range *tokens {
		bs := (*tokens)[idx]
		if bs < 0 || bs > 0xFFFFFFFF {
			return nil, fmt.Errorf("integer overflow: tried to write token ID %d as unsigned 32-bit", bs)
		}
		err := binary.Write(buf, binary.LittleEndian, uint32(bs))
		if err != nil {
			return nil, err
		}
	}
	byt := buf.Bytes()
	return &byt, nil
}

// ToUint32s converts tokens to plain unsigned 32-bit ids, for callers such
// as JavaScript that cannot represent int64.
func (tokens *Tokens) ToUint32s() ([]uint32, error) {
	ids := make([]uint32, len(*tokens))
	for idx, token := range *tokens {
		if token < 0 || token > 0xFFFFFFFF {
			return nil, fmt.Errorf("integer overflow: tried to convert token ID %d to unsigned 32-bit", token)
		}
		ids[idx] = uint32(token)
	}
	return ids, nil
}

// TokensFromBin reads little endian uint16 tokens. A trailing odd byte is
// ignored.
func TokensFromBin(bin *[]byte) *Tokens {
	tokens := make(Tokens, 0, len(*bin)/TokenSize)
	buf := bytes.NewReader(*bin)
	for {
		var token uint16
		if err := binary.Read(buf, binary.LittleEndian, &token); err != nil {
			break
		}
		tokens = append(tokens, Token(token))
	}
	return &tokens
}

func TokensFromBin32(bin *[]byte) *Tokens {
	tokens := make(Tokens, 0, len(*bin)/TokenSize32)
	buf := bytes.NewReader(*bin)
	for {
		var token uint32
		if err := binary.Read(buf, binary.LittleEndian, &token); err != nil {
			break
		}
		tokens = append(tokens, Token(token))
	}
	return &tokens
}
