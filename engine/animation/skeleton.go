package animation

import (
	"fmt"
)

const (
	// MaxJoints is the largest joint count a skeleton may hold.
	MaxJoints = 1024

	// NoParent marks a root joint.
	NoParent = -1
)

// Joint describes one joint when building a skeleton.
type Joint struct {
	// Name is the joint identifier, unique within the skeleton.
	Name string

	// Parent is the index of the parent joint, or NoParent for roots.
	// It must be lower than the joint's own index.
	Parent int

	// Rest is the joint's bind-time local transform relative to its parent.
	Rest Transform
}

// Skeleton is an immutable joint hierarchy stored in parent-before-child order.
// Rest poses are stored in SoA form so they can seed sampling output directly.
type Skeleton struct {
	names     []string
	parents   []int16
	restPoses []SoaTransform
	nameIndex map[string]int
}

// NewSkeleton validates joints and builds a skeleton from them.
//
// Parameters:
//   - joints: joints ordered so every parent precedes its children
//
// Returns:
//   - *Skeleton: the skeleton
//   - error: ErrInvalidSkeleton if ordering, joint count or names are invalid
func NewSkeleton(joints []Joint) (*Skeleton, error) {
	if len(joints) > MaxJoints {
		return nil, fmt.Errorf("%w: %d joints exceeds maximum of %d", ErrInvalidSkeleton, len(joints), MaxJoints)
	}

	s := &Skeleton{
		names:     make([]string, len(joints)),
		parents:   make([]int16, len(joints)),
		restPoses: make([]SoaTransform, SoaCount(len(joints))),
		nameIndex: make(map[string]int, len(joints)),
	}
	for i := range s.restPoses {
		s.restPoses[i] = IdentitySoaTransform()
	}

	for i, j := range joints {
		if j.Parent != NoParent && (j.Parent < 0 || j.Parent >= i) {
			return nil, fmt.Errorf("%w: joint %d (%q) has parent %d, parents must precede children", ErrInvalidSkeleton, i, j.Name, j.Parent)
		}
		if j.Name != "" {
			if prev, ok := s.nameIndex[j.Name]; ok {
				return nil, fmt.Errorf("%w: joint name %q used by joints %d and %d", ErrInvalidSkeleton, j.Name, prev, i)
			}
			s.nameIndex[j.Name] = i
		}
		s.names[i] = j.Name
		s.parents[i] = int16(j.Parent)
		SetJointTransform(s.restPoses, i, j.Rest)
	}

	return s, nil
}

// NumJoints returns the number of joints.
func (s *Skeleton) NumJoints() int {
	return len(s.parents)
}

// NumSoaJoints returns the number of SoA transforms needed to hold one pose.
func (s *Skeleton) NumSoaJoints() int {
	return len(s.restPoses)
}

// JointNames returns the joint names in storage order. The slice must not be modified.
func (s *Skeleton) JointNames() []string {
	return s.names
}

// JointParents returns the parent index of every joint. The slice must not be modified.
func (s *Skeleton) JointParents() []int16 {
	return s.parents
}

// RestPoses returns the rest pose in SoA form. The slice must not be modified.
func (s *Skeleton) RestPoses() []SoaTransform {
	return s.restPoses
}

// RestPose returns the rest transform of a single joint.
func (s *Skeleton) RestPose(joint int) Transform {
	return JointTransform(s.restPoses, joint)
}

// JointIndex looks up a joint by name.
func (s *Skeleton) JointIndex(name string) (int, bool) {
	i, ok := s.nameIndex[name]
	return i, ok
}

// IsLeaf reports whether no joint has the given joint as parent.
func (s *Skeleton) IsLeaf(joint int) bool {
	next := joint + 1
	for i := next; i < len(s.parents); i++ {
		if int(s.parents[i]) == joint {
			return false
		}
	}
	return true
}
