package engine

import (
	"fmt"
	"maps"

	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

// RequestKind identifies what a Request asks the simulation to do.
type RequestKind uint8

const (
	RequestSpawnCargo RequestKind = iota + 1
	RequestMoveCargo
	RequestDestroyCargo
	RequestPlacePart
	RequestClearCell
	RequestIncludePart
	RequestRemovePart
	RequestSetProperty
	RequestInvoke
	RequestConnect
	RequestDisconnect
	RequestResize
	RequestSelect
	RequestRedraw
	RequestUpdateInfo
	RequestLoadModel
	RequestMessage
	RequestStep
	RequestStop

	requestAttach
	requestDetach
)

var requestNames = map[RequestKind]string{
	RequestSpawnCargo:   "spawn_cargo",
	RequestMoveCargo:    "move_cargo",
	RequestDestroyCargo: "destroy_cargo",
	RequestPlacePart:    "place_part",
	RequestClearCell:    "clear_cell",
	RequestIncludePart:  "include_part",
	RequestRemovePart:   "remove_part",
	RequestSetProperty:  "set_property",
	RequestInvoke:       "invoke",
	RequestConnect:      "connect",
	RequestDisconnect:   "disconnect",
	RequestResize:       "resize",
	RequestSelect:       "select",
	RequestRedraw:       "redraw",
	RequestUpdateInfo:   "update_info",
	RequestLoadModel:    "load_model",
	RequestMessage:      "message",
	RequestStep:         "step",
	RequestStop:         "stop",
	requestAttach:       "attach",
	requestDetach:       "detach",
}

func (k RequestKind) String() string {
	if name, ok := requestNames[k]; ok {
		return name
	}
	return fmt.Sprintf("request(%d)", uint8(k))
}

// Request is a unit of work a participant submits to the simulation. It is
// drained exactly once, at the start of the next cycle's mutate phase.
// Build requests with the constructor functions.
type Request struct {
	Kind RequestKind

	Cell      value.Handle
	Point     geom.Point
	To        geom.Point
	At        geom.Vec
	Delta     geom.Vec
	Direction geom.Direction
	Size      geom.Size

	PartID string
	Part   *part.Part

	Property value.PropertyID
	Value    value.Value
	Name     string
	Args     []value.Value
	Info     map[string]string
	Model    Model

	reg *registration
}

// Placement is one part placed by a model load.
type Placement struct {
	At    geom.Point
	Part  string
	Props map[value.PropertyID]value.Value
}

// Model is a set of placements loaded in one step.
type Model struct {
	Size       geom.Size
	Placements []Placement
}

// SpawnCargo creates cargo of part partID at absolute position at.
func SpawnCargo(partID string, at geom.Vec) Request {
	return Request{Kind: RequestSpawnCargo, PartID: partID, At: at}
}

// MoveCargo displaces cargo by delta at the next commit.
func MoveCargo(cargo value.Handle, delta geom.Vec) Request {
	return Request{Kind: RequestMoveCargo, Cell: cargo, Delta: delta}
}

// DestroyCargo removes cargo at the next commit.
func DestroyCargo(cargo value.Handle) Request {
	return Request{Kind: RequestDestroyCargo, Cell: cargo}
}

// PlacePart places part partID on the unplaced cell at pt.
func PlacePart(pt geom.Point, partID string) Request {
	return Request{Kind: RequestPlacePart, Point: pt, PartID: partID}
}

// ClearCell removes the part at pt.
func ClearCell(pt geom.Point) Request {
	return Request{Kind: RequestClearCell, Point: pt}
}

// IncludePart adds p to the simulation's part registry.
func IncludePart(p *part.Part) Request {
	return Request{Kind: RequestIncludePart, Part: p, PartID: p.ID()}
}

// RemovePart drops part id from the registry. Cells already holding it keep
// their part.
func RemovePart(id string) Request {
	return Request{Kind: RequestRemovePart, PartID: id}
}

// SetProperty stages v into property id of cell.
func SetProperty(cell value.Handle, id value.PropertyID, v value.Value) Request {
	return Request{Kind: RequestSetProperty, Cell: cell, Property: id, Value: v}
}

// Invoke runs the named delegate of cell, for example "press".
func Invoke(cell value.Handle, name string, args ...value.Value) Request {
	return Request{Kind: RequestInvoke, Cell: cell, Name: name, Args: args}
}

// Connect links the cell at from to the cell at to in direction d.
func Connect(from geom.Point, d geom.Direction, to geom.Point) Request {
	return Request{Kind: RequestConnect, Point: from, Direction: d, To: to}
}

// Disconnect removes the link of the cell at pt in direction d.
func Disconnect(pt geom.Point, d geom.Direction) Request {
	return Request{Kind: RequestDisconnect, Point: pt, Direction: d}
}

// Resize changes the grid dimensions.
func Resize(size geom.Size) Request {
	return Request{Kind: RequestResize, Size: size}
}

// Select makes cell the selection. Zero clears it. Participants receive the
// selected cell's properties now and on every later change.
func Select(cell value.Handle) Request {
	return Request{Kind: RequestSelect, Cell: cell}
}

// Redraw asks for cell to be drawn for every participant.
func Redraw(cell value.Handle) Request {
	return Request{Kind: RequestRedraw, Cell: cell}
}

// UpdateInfo merges info into the run's descriptive metadata.
func UpdateInfo(info map[string]string) Request {
	return Request{Kind: RequestUpdateInfo, Info: maps.Clone(info)}
}

// LoadModel resizes the grid to m.Size when it is non-empty and places every
// part in m.
func LoadModel(m Model) Request {
	return Request{Kind: RequestLoadModel, Model: m}
}

// Message broadcasts a participant message to every participant.
func Message(header string, content value.Value) Request {
	return Request{Kind: RequestMessage, Name: header, Value: content}
}

// Step sends OnStep to every participant with the next cycle.
func Step() Request {
	return Request{Kind: RequestStep}
}

// Stop ends the run once the current drain has been committed.
func Stop() Request {
	return Request{Kind: RequestStop}
}
