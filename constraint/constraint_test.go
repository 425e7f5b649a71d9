package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/rover/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func TestMaterialMixing(t *testing.T) {
	tests := []struct {
		name            string
		matA, matB      actor.Material
		restitution     float64
		staticFriction  float64
		dynamicFriction float64
	}{
		{
			name:        "frictionless, no bounce",
			matA:        actor.Material{},
			matB:        actor.Material{},
			restitution: 0,
		},
		{
			name:            "averaged restitution",
			matA:            actor.Material{Restitution: 0.2, StaticFriction: 0.5, DynamicFriction: 0.4},
			matB:            actor.Material{Restitution: 0.6, StaticFriction: 0.5, DynamicFriction: 0.4},
			restitution:     0.4,
			staticFriction:  0.5,
			dynamicFriction: 0.4,
		},
		{
			name:            "one frictionless side cancels friction",
			matA:            actor.Material{Restitution: 1, StaticFriction: 0.9, DynamicFriction: 0.7},
			matB:            actor.Material{Restitution: 1},
			restitution:     1,
			staticFriction:  0,
			dynamicFriction: 0,
		},
		{
			name:            "geometric mean",
			matA:            actor.Material{StaticFriction: 0.25, DynamicFriction: 0.16},
			matB:            actor.Material{StaticFriction: 1.0, DynamicFriction: 1.0},
			staticFriction:  0.5,
			dynamicFriction: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MixMaterials(tt.matA, tt.matB)
			if math.Abs(got.Restitution-tt.restitution) > 1e-10 {
				t.Errorf("Restitution = %v, want %v", got.Restitution, tt.restitution)
			}
			if math.Abs(got.StaticFriction-tt.staticFriction) > 1e-10 {
				t.Errorf("StaticFriction = %v, want %v", got.StaticFriction, tt.staticFriction)
			}
			if math.Abs(got.DynamicFriction-tt.dynamicFriction) > 1e-10 {
				t.Errorf("DynamicFriction = %v, want %v", got.DynamicFriction, tt.dynamicFriction)
			}
		})
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name    string
		linear  mgl64.Vec3
		angular mgl64.Vec3
		wantLin mgl64.Vec3
		wantAng mgl64.Vec3
	}{
		{"already at rest", mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}},
		{"tiny drift is removed", mgl64.Vec3{1e-7, -1e-7, 0}, mgl64.Vec3{0, 2e-6, 0}, mgl64.Vec3{}, mgl64.Vec3{}},
		{"real motion is kept", mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 0.5, 0}},
		{"only the small part is clamped", mgl64.Vec3{-4, 0, 0}, mgl64.Vec3{1e-8, 0, 0}, mgl64.Vec3{-4, 0, 0}, mgl64.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := &actor.RigidBody{Velocity: tt.linear, AngularVelocity: tt.angular}
			settle(rb)

			if rb.Velocity != tt.wantLin {
				t.Errorf("Velocity = %v, want %v", rb.Velocity, tt.wantLin)
			}
			if rb.AngularVelocity != tt.wantAng {
				t.Errorf("AngularVelocity = %v, want %v", rb.AngularVelocity, tt.wantAng)
			}
		})
	}
}
