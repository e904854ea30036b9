package asset

import (
	"fmt"
	"strconv"
	"strings"

	"xdao.co/ratewire/address"
)

func (Native) Key() string { return "0" }

func (t Token) Key() string { return "1:" + t.Master.String() }

func (e ExtraCurrency) Key() string {
	return "2:" + strconv.FormatInt(int64(e.ID), 10)
}

// FromKey reconstructs an asset from its stable textual key, the inverse of
// Key.
func FromKey(key string) (Asset, error) {
	if key == "0" {
		return Native{}, nil
	}
	tag, rest, ok := strings.Cut(key, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	switch tag {
	case "1":
		master, err := address.Parse(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %s", ErrInvalidKey, key, err)
		}
		return Token{Master: master}, nil
	case "2":
		id, err := strconv.ParseInt(rest, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: bad currency id", ErrInvalidKey, key)
		}
		return ExtraCurrency{ID: int32(id)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
}
