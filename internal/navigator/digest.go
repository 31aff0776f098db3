package navigator

import (
	"encoding/binary"
	"hash"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/crypto/blake2b"

	"github.com/udisondev/navgo/internal/collision"
	"github.com/udisondev/navgo/internal/config"
)

// DigestSize is the size of a tile input digest.
const DigestSize = blake2b.Size256

// Digest hashes everything a tile bake reads: geometry, water, the agent
// and the recast settings. Equal digests mean interchangeable bake results.
func (m *RecastMesh) Digest(agent AgentHalfExtents, s config.RecastSettings) [DigestSize]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for oversized keys
		panic(err)
	}
	w := digestWriter{h: h}

	w.vec3(agent)
	w.f32(s.CellSize)
	w.f32(s.CellHeight)
	w.i64(int64(s.TileSize))
	w.i64(int64(s.BorderSize))
	w.f32(s.MaxSlope)
	w.i64(int64(m.tile.X))
	w.i64(int64(m.tile.Y))

	w.i64(int64(len(m.vertices)))
	for _, v := range m.vertices {
		w.vec3(v)
	}
	w.i64(int64(len(m.indices)))
	for _, idx := range m.indices {
		w.i64(int64(idx))
	}
	for _, a := range m.areaTypes {
		w.buf = append(w.buf[:0], byte(a))
		w.h.Write(w.buf)
	}

	w.i64(int64(len(m.water)))
	for _, water := range m.water {
		w.i64(int64(water.Cell.X))
		w.i64(int64(water.Cell.Y))
		w.i64(int64(water.CellSize))
		w.transform(water.Transform)
	}

	var out [DigestSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

type digestWriter struct {
	h   hash.Hash
	buf []byte
}

func (w *digestWriter) f32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf[:0], math.Float32bits(v))
	w.h.Write(w.buf)
}

func (w *digestWriter) i64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf[:0], uint64(v))
	w.h.Write(w.buf)
}

func (w *digestWriter) vec3(v mgl32.Vec3) {
	w.f32(v.X())
	w.f32(v.Y())
	w.f32(v.Z())
}

func (w *digestWriter) transform(t collision.Transform) {
	w.f32(t.Basis.W)
	w.vec3(t.Basis.V)
	w.vec3(t.Origin)
}
