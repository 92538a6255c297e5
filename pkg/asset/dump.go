package asset

import (
	"bytes"
	"fmt"
	"io"
	stdmath "math"
	"strings"

	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// Dump writes a deterministic, human-readable listing of a bundle. Floats
// are rounded to four decimals.
func Dump(w io.Writer, b *Bundle) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "bundle %s\n", b.Name)
	fmt.Fprintf(&buf, "vertices %d source=%d move=%d max_level=%d\n",
		b.VertexCount(), b.SourceVertexCount, b.MoveCount(), b.MaxLevel)
	for i, v := range b.Vertices {
		fmt.Fprintf(&buf, "  v%d src=%d %s level=%d depth=%s parent=%d root=%d end=%t pos=%s\n",
			i, b.UsedVertices[i], v.Role, v.Level, ff(v.Depth), v.Parent, v.Root, v.End, fv(b.Positions[i]))
	}
	fmt.Fprintf(&buf, "lines %d triangles %d\n", len(b.Lines), len(b.Triangles))

	c := b.Constraints
	if c.Distance == nil {
		buf.WriteString("distance off\n")
	} else {
		fmt.Fprintf(&buf, "distance %d\n", len(c.Distance.Records))
		for v, ref := range c.Distance.Refs {
			for _, r := range c.Distance.Records[ref.Start:ref.End()] {
				fmt.Fprintf(&buf, "  v%d -> %d %s rest=%s\n", v, r.Target, r.Kind, ff(r.RestLength))
			}
		}
	}

	if c.ClampDistance == nil {
		buf.WriteString("clamp_distance off\n")
	} else {
		fmt.Fprintf(&buf, "clamp_distance %d\n", len(c.ClampDistance))
		for v, r := range c.ClampDistance {
			if r.Root < 0 {
				continue
			}
			fmt.Fprintf(&buf, "  v%d root=%d rest=%s\n", v, r.Root, ff(r.RestLength))
		}
	}

	if c.Rotation == nil {
		buf.WriteString("rotation off\n")
	} else {
		fmt.Fprintf(&buf, "rotation %d lines=%d\n", len(c.Rotation.Records), len(c.Rotation.Lines))
		for v, r := range c.Rotation.Records {
			fmt.Fprintf(&buf, "  v%d parent=%d local_pos=%s local_rot=%s\n", v, r.Parent, fv(r.LocalPos), fq(r.LocalRot))
		}
		for i, line := range c.Rotation.Lines {
			fmt.Fprintf(&buf, "  line%d %s\n", i, joinInts(c.Rotation.LineData[line.Start:line.End()]))
		}
	}

	if c.TriangleBend == nil {
		buf.WriteString("triangle_bend off\n")
	} else {
		fmt.Fprintf(&buf, "triangle_bend %d slots=%d\n", len(c.TriangleBend.Records), len(c.TriangleBend.Slots))
		for i, r := range c.TriangleBend.Records {
			fmt.Fprintf(&buf, "  t%d %s rest=%s sign=%s depth=%s\n",
				i, joinInts(r.Vertices[:]), ff(r.RestAngle), ff(r.Sign), ff(r.Depth))
		}
		for v, ref := range c.TriangleBend.Refs {
			if ref.Count == 0 {
				continue
			}
			fmt.Fprintf(&buf, "  v%d slots %s\n", v, joinInts(c.TriangleBend.Slots[ref.Start:ref.End()]))
		}
	}

	if c.Penetration == nil {
		buf.WriteString("penetration off\n")
	} else {
		p := c.Penetration
		fmt.Fprintf(&buf, "penetration %s %d\n", p.Mode, len(p.Records))
		for v, ref := range p.Refs {
			for _, r := range p.Records[ref.Start:ref.End()] {
				if p.Mode == constraint.PenetrationSurface {
					fmt.Fprintf(&buf, "  v%d axis=%s\n", v, r.Axis)
					continue
				}
				fmt.Fprintf(&buf, "  v%d collider=%d local_pos=%s local_dir=%s dist=%s\n",
					v, r.Collider, fv(r.LocalPos), fv(r.LocalDir), ff(r.Distance))
			}
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// ff formats a float with four decimals and no negative zero.
func ff(v float32) string {
	r := stdmath.Round(float64(v)*1e4) / 1e4
	if r == 0 {
		r = 0
	}
	return fmt.Sprintf("%.4f", r)
}

func fv(v math.Vec3) string {
	return "(" + ff(v.X) + ", " + ff(v.Y) + ", " + ff(v.Z) + ")"
}

func fq(q math.Quat) string {
	return "(" + ff(q.X) + ", " + ff(q.Y) + ", " + ff(q.Z) + ", " + ff(q.W) + ")"
}

func joinInts(vs []int32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
