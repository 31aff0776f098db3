package navigator

import (
	"bufio"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// DebugWriter dumps tile geometry and navigation meshes for inspection.
// Dumps are observational: failures are logged by the caller and ignored.
type DebugWriter interface {
	WriteRecastMesh(mesh *RecastMesh, pathPrefix, revision string) error
	WriteNavMesh(navMesh *NavMesh, pathPrefix, revision string) error
}

// FileDebugWriter writes recast meshes as Wavefront OBJ and navigation
// meshes as msgpack encoded tile lists.
type FileDebugWriter struct{}

// RecastMeshFileName returns the OBJ path for a tile dump.
func RecastMeshFileName(pathPrefix string, tile TilePosition, revision string) string {
	return fmt.Sprintf("%s%s_recastmesh%s.obj", pathPrefix, tile, revision)
}

// NavMeshFileName returns the path of a navigation mesh dump.
func NavMeshFileName(pathPrefix, revision string) string {
	return fmt.Sprintf("%sall_tiles_navmesh%s.bin", pathPrefix, revision)
}

// WriteRecastMesh implements DebugWriter.
func (FileDebugWriter) WriteRecastMesh(mesh *RecastMesh, pathPrefix, revision string) error {
	path := RecastMeshFileName(pathPrefix, mesh.Tile(), revision)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# tile %s revision %d\n", mesh.Tile(), mesh.Revision())
	for _, v := range mesh.Vertices() {
		fmt.Fprintf(w, "v %g %g %g\n", v.X(), v.Y(), v.Z())
	}
	indices := mesh.Indices()
	for i, area := range mesh.AreaTypes() {
		// OBJ indices are 1-based
		fmt.Fprintf(w, "f %d %d %d # %s\n", indices[i*3]+1, indices[i*3+1]+1, indices[i*3+2]+1, area)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteNavMesh implements DebugWriter.
func (FileDebugWriter) WriteNavMesh(navMesh *NavMesh, pathPrefix, revision string) error {
	tiles := make([]*TileData, 0, navMesh.TileCount())
	navMesh.ForEachTile(func(d *TileData) {
		tiles = append(tiles, d)
	})

	b, err := msgpack.Marshal(tiles)
	if err != nil {
		return fmt.Errorf("encoding navmesh: %w", err)
	}
	path := NavMeshFileName(pathPrefix, revision)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
