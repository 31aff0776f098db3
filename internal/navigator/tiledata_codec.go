package navigator

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeTileData serializes tile data for storage.
func EncodeTileData(data *TileData) ([]byte, error) {
	b, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding tile %d_%d: %w", data.X, data.Y, err)
	}
	return b, nil
}

// DecodeTileData parses data written by EncodeTileData.
func DecodeTileData(b []byte) (*TileData, error) {
	var data TileData
	if err := msgpack.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decoding tile data: %w", err)
	}
	return &data, nil
}
