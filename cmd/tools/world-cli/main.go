package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/annel0/voxelworld/internal/editfeed"
	"github.com/annel0/voxelworld/internal/storage"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
)

func main() {
	var (
		command  = flag.String("cmd", "info", "Command: info, export, chunk, edit")
		savePath = flag.String("save", "data/world.vxs", "Save file path")
		seed     = flag.Int64("seed", 0, "World seed when no save file is given")
		cx       = flag.Int("cx", 0, "Chunk X for chunk command")
		cz       = flag.Int("cz", 0, "Chunk Z for chunk command")
		natsURL  = flag.String("nats", "nats://127.0.0.1:4222", "NATS URL for edit command")
		subject  = flag.String("subject", editfeed.DefaultSubject, "NATS subject for edit command")
		pos      = flag.String("pos", "", "Block position x,y,z for edit command")
		kind     = flag.String("block", "stone", "Block name for edit command")
	)
	flag.Parse()

	var err error
	switch *command {
	case "info":
		err = showInfo(*savePath)
	case "export":
		err = exportEdits(*savePath)
	case "chunk":
		err = showChunk(*savePath, *seed, vec.Vec3{X: *cx, Z: *cz})
	case "edit":
		err = sendEdit(*natsURL, *subject, *pos, *kind)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: info, export, chunk, edit")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

// showInfo выводит заголовок сохранения
func showInfo(path string) error {
	save, err := storage.LoadFile(path)
	if err != nil {
		return err
	}
	h := save.Header
	fmt.Printf("🌍 World %s\n", h.WorldID)
	fmt.Printf("   version: %d\n", h.Version)
	fmt.Printf("   seed:    %d\n", h.Seed)
	fmt.Printf("   created: %s\n", h.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("   edits:   %d\n", h.Edits)

	chunks := make(map[vec.Vec3]int)
	for _, e := range save.Edits {
		chunks[e.Pos.ToChunkCoords()]++
	}
	fmt.Printf("   chunks:  %d\n", len(chunks))
	return nil
}

// exportEdits печатает правки сохранения в JSON
func exportEdits(path string) error {
	save, err := storage.LoadFile(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(save.Edits)
}

// showChunk генерирует чанк с правками сохранения и выводит сводку меша
func showChunk(path string, seed int64, coords vec.Vec3) error {
	overlay := world.NewEditOverlay()
	if save, err := storage.LoadFile(path); err == nil {
		seed = save.Header.Seed
		if err := save.Apply(overlay); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if !world.ChunkInWorld(coords) {
		return fmt.Errorf("chunk %v: %w", coords, world.ErrOutOfRange)
	}

	gen := world.NewTerrainGenerator(seed, 4)
	chunk := gen.Generate(coords)
	applied := overlay.ApplyTo(chunk)
	mesh := world.NewMesher(world.NeighborTransparent).Build(chunk, world.NeighborSet{})

	counts := make(map[block.BlockID]int)
	for _, id := range chunk.Blocks() {
		counts[id]++
	}

	fmt.Printf("🧱 Chunk %v (seed %d)\n", coords, seed)
	fmt.Printf("   edits applied: %d\n", applied)
	fmt.Printf("   faces:         %d\n", mesh.FaceCount())
	fmt.Printf("   mesh bytes:    %d\n", len(mesh.Bytes()))
	origin := chunk.Origin()
	fmt.Printf("   surface:       %d (%s)\n", gen.SurfaceHeight(origin.X+8, origin.Z+8), gen.BiomeAt(origin.X+8, origin.Z+8))
	for _, id := range block.Registered() {
		if counts[id] > 0 {
			fmt.Printf("   %-12s %d\n", id, counts[id])
		}
	}
	return nil
}

// sendEdit публикует правку в ленту NATS работающего мира
func sendEdit(url, subject, posArg, kind string) error {
	var p vec.Vec3
	if _, err := fmt.Sscanf(strings.ReplaceAll(posArg, " ", ""), "%d,%d,%d", &p.X, &p.Y, &p.Z); err != nil {
		return fmt.Errorf("invalid pos %q: %v", posArg, err)
	}
	if !world.InWorld(p) {
		return fmt.Errorf("pos %v: %w", p, world.ErrOutOfRange)
	}
	id, err := block.ParseBlockID(kind)
	if err != nil {
		return err
	}

	feed, err := editfeed.NewNATSFeed(url, subject)
	if err != nil {
		return err
	}
	defer feed.Close()

	edit := editfeed.NewEdit(p, id, "world-cli")
	if err := feed.Publish(context.Background(), edit); err != nil {
		return err
	}
	fmt.Printf("✅ Edit %s sent: %v -> %s\n", edit.ID, p, id)
	return nil
}
