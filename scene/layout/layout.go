// Package layout describes the sandbox scene in YAML: the static props, the
// dynamic ones and the meshes of the vehicle.
package layout

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/akmonengine/rover/actor"
	"github.com/akmonengine/rover/internal/logging"
	"github.com/akmonengine/rover/registry"
	"github.com/akmonengine/rover/scene"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownPrimitive = errors.New("unknown primitive")
	ErrUnknownBodyType  = errors.New("unknown body type")
	ErrNoVehicle        = errors.New("layout has no vehicle")
)

//go:embed default.yaml
var defaultLayout []byte

const defaultSegments = 16

// Shape selects a geometry constructor. Size is used by box and wedge,
// Radius and Height by sphere, cone and cylinder (Height is the width of a
// cylinder, laid along X).
type Shape struct {
	Name      string     `yaml:"name"`
	Primitive string     `yaml:"primitive"`
	Size      [3]float64 `yaml:"size"`
	Radius    float64    `yaml:"radius"`
	Height    float64    `yaml:"height"`
	Segments  int        `yaml:"segments"`
	Scale     float64    `yaml:"scale"`
}

// Item is a scene object backed by a body.
type Item struct {
	Shape `yaml:",inline"`

	Position [3]float64 `yaml:"position"`
	// Rotation is in degrees, applied in XYZ order.
	Rotation  [3]float64 `yaml:"rotation"`
	Body      string     `yaml:"body"`
	Collider  string     `yaml:"collider"`
	Mass      float64    `yaml:"mass"`
	Grabbable bool       `yaml:"grabbable"`
}

// Vehicle holds the meshes only, the vehicle model builds the bodies.
type Vehicle struct {
	Chassis Shape   `yaml:"chassis"`
	Wheels  []Shape `yaml:"wheels"`
}

type Manifest struct {
	Objects []Item   `yaml:"objects"`
	Vehicle *Vehicle `yaml:"vehicle"`
}

func Load(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return &m, nil
}

func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open layout: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Default returns the built-in layout.
func Default() *Manifest {
	m, err := Load(bytes.NewReader(defaultLayout))
	if err != nil {
		panic(err)
	}
	return m
}

// Scene is what Build created.
type Scene struct {
	Root    *scene.Node
	Objects []*registry.TrackedObject
	Chassis *scene.Node
	Wheels  []*scene.Node
}

// Build adds the manifest nodes under root and registers the objects. An
// object failing to build is logged and skipped, a broken vehicle fails the
// whole build.
func Build(m *Manifest, root *scene.Node, reg *registry.Registry, logger *zap.Logger) (*Scene, error) {
	logger = logging.OrNop(logger)
	s := &Scene{Root: root}

	for _, item := range m.Objects {
		object, err := buildItem(item, root, reg)
		if err != nil {
			logger.Warn("layout object skipped", zap.String("name", item.Name), zap.Error(err))
			continue
		}
		s.Objects = append(s.Objects, object)
	}

	if m.Vehicle != nil {
		chassis, err := node(m.Vehicle.Chassis)
		if err != nil {
			return nil, fmt.Errorf("chassis: %w", err)
		}
		root.Add(chassis)
		s.Chassis = chassis

		for i, shape := range m.Vehicle.Wheels {
			wheel, err := node(shape)
			if err != nil {
				return nil, fmt.Errorf("wheel %d: %w", i, err)
			}
			root.Add(wheel)
			s.Wheels = append(s.Wheels, wheel)
		}
	}

	logger.Info("layout built",
		zap.Int("objects", len(s.Objects)),
		zap.Bool("vehicle", s.Chassis != nil))
	return s, nil
}

func buildItem(item Item, root *scene.Node, reg *registry.Registry) (*registry.TrackedObject, error) {
	bodyType, err := parseBodyType(item.Body)
	if err != nil {
		return nil, err
	}
	n, err := node(item.Shape)
	if err != nil {
		return nil, err
	}
	n.Position = mgl64.Vec3(item.Position)
	n.Rotation = mgl64.AnglesToQuat(
		mgl64.DegToRad(item.Rotation[0]),
		mgl64.DegToRad(item.Rotation[1]),
		mgl64.DegToRad(item.Rotation[2]),
		mgl64.XYZ,
	).Normalize()

	root.Add(n)
	object, err := reg.Add(n, bodyType, registry.Collider(item.Collider))
	if err != nil {
		root.Remove(n)
		return nil, err
	}

	if item.Mass > 0 {
		object.Body.SetMass(item.Mass)
	}
	object.Grabbable = item.Grabbable
	return object, nil
}

func node(shape Shape) (*scene.Node, error) {
	g, err := geometry(shape)
	if err != nil {
		return nil, err
	}

	n := scene.NewNode(shape.Name, g)
	if shape.Scale > 0 {
		n.Scale = mgl64.Vec3{shape.Scale, shape.Scale, shape.Scale}
	}
	return n, nil
}

func geometry(shape Shape) (*scene.Geometry, error) {
	segments := shape.Segments
	if segments <= 0 {
		segments = defaultSegments
	}

	switch shape.Primitive {
	case "box":
		return scene.BoxGeometry(shape.Size[0], shape.Size[1], shape.Size[2]), nil
	case "wedge":
		return scene.WedgeGeometry(shape.Size[0], shape.Size[1], shape.Size[2]), nil
	case "sphere":
		return scene.SphereGeometry(shape.Radius, segments), nil
	case "cone":
		return scene.ConeGeometry(shape.Radius, shape.Height, segments), nil
	case "cylinder":
		return scene.CylinderGeometry(shape.Radius, shape.Height, segments), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownPrimitive, shape.Primitive)
}

func parseBodyType(name string) (actor.BodyType, error) {
	for _, t := range []actor.BodyType{
		actor.BodyTypeDynamic,
		actor.BodyTypeFixed,
		actor.BodyTypeKinematicVelocity,
		actor.BodyTypeKinematicPosition,
	} {
		if t.String() == name {
			return t, nil
		}
	}
	if name == "" {
		return actor.BodyTypeDynamic, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownBodyType, name)
}
