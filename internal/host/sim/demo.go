package sim

import (
	"math/rand"

	"tickcore.ai/internal/host"
)

// DemoRoom is the room NewDemo lays out.
const DemoRoom = "W1N1"

// NewDemo builds a small playable room: walled edges, swamp patches, two
// sources, a spawn with extensions, a container, an owned controller, a
// construction site, a worn road and one creep of each stock role.
func NewDemo(seed int64) *World {
	r := rand.New(rand.NewSource(seed))
	w := New()
	w.AddRoom(DemoRoom)
	at := func(x, y int) host.Pos { return host.Pos{Room: DemoRoom, X: x, Y: y} }

	for i := 0; i < host.RoomSize; i++ {
		w.SetTerrain(at(i, 0), host.Wall)
		w.SetTerrain(at(i, host.RoomSize-1), host.Wall)
		w.SetTerrain(at(0, i), host.Wall)
		w.SetTerrain(at(host.RoomSize-1, i), host.Wall)
	}
	for i := 0; i < 6; i++ {
		cx, cy := 5+r.Intn(host.RoomSize-10), 5+r.Intn(host.RoomSize-10)
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				if r.Intn(3) > 0 {
					w.SetTerrain(at(cx+dx, cy+dy), host.Swamp)
				}
			}
		}
	}

	plain := func(x, y int) host.Pos {
		p := at(x, y)
		w.SetTerrain(p, host.Plain)
		return p
	}
	w.AddSource(plain(10, 10), 3000)
	w.AddSource(plain(38, 12), 3000)
	w.AddContainer(plain(25, 25), host.StructureSpawn, 300, 0)
	w.AddContainer(plain(27, 25), host.StructureExtension, 50, 0)
	w.AddContainer(plain(27, 27), host.StructureExtension, 50, 0)
	w.AddContainer(plain(11, 12), host.StructureContainer, 2000, 200)
	w.AddController(plain(25, 40), 1, w.Player())
	w.AddSite(plain(23, 25), host.StructureExtension, 3000)
	for x := 12; x < 24; x++ {
		w.AddStructure(plain(x, 24), host.StructureRoad, 2500-100*(x-12), 5000)
	}

	worker := []host.BodyPart{host.Work, host.Carry, host.Move}
	w.AddCreep(CreepSpec{Name: "miner-1", Pos: plain(24, 23), Body: worker})
	w.AddCreep(CreepSpec{Name: "miner-2", Pos: plain(26, 23), Body: worker})
	w.AddCreep(CreepSpec{Name: "worker-1", Pos: plain(24, 27), Body: worker, Energy: 50})
	w.AddCreep(CreepSpec{Name: "hauler-1", Pos: plain(26, 27), Body: []host.BodyPart{host.Carry, host.Carry, host.Move}})
	return w
}
