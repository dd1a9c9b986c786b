package adjacency

import (
	"math"

	"github.com/ctessum/geom"
)

// 共线/重合判定容差（与坐标同单位）
const eps = 1e-9

type segment struct {
	p, q geom.Point
	box  geom.Bounds
}

// 文档注释：面与面是否相交（含仅边界接触、仅共点）
// 约束：先比较包围盒，再只对落在对方包围盒内的边做两两求交；均无交点时再判断包含关系。
func Intersects(a, b geom.Polygonal) bool {
	ba, bb := a.Bounds(), b.Bounds()
	if !boundsTouch(ba, bb) {
		return false
	}
	sa := segments(a, bb)
	sb := segments(b, ba)
	for i := range sa {
		for j := range sb {
			if !boundsTouch(&sa[i].box, &sb[j].box) {
				continue
			}
			if segmentsIntersect(sa[i].p, sa[i].q, sb[j].p, sb[j].q) {
				return true
			}
		}
	}
	// 边界无交点：要么互不相交，要么某个环整体落在对方内部
	return ringInside(a, b) || ringInside(b, a)
}

// 收集与 clip 包围盒接触的所有边；环按闭合处理
func segments(pg geom.Polygonal, clip *geom.Bounds) []segment {
	var out []segment
	for _, poly := range pg.Polygons() {
		for _, ring := range poly {
			n := len(ring)
			for i := 0; i < n; i++ {
				p, q := ring[i], ring[(i+1)%n]
				s := segment{p: p, q: q, box: geom.Bounds{
					Min: geom.Point{X: math.Min(p.X, q.X), Y: math.Min(p.Y, q.Y)},
					Max: geom.Point{X: math.Max(p.X, q.X), Y: math.Max(p.Y, q.Y)},
				}}
				if boundsTouch(&s.box, clip) {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// 文档注释：pg 是否有某个环落在 other 内
// 约束：每个部件的每个环都取一个顶点判定；多部件面的非首个外环同样参与。
// 调用前已排除边界相交，单个顶点即可代表整个环。
func ringInside(pg, other geom.Polygonal) bool {
	for _, poly := range pg.Polygons() {
		for _, ring := range poly {
			if len(ring) > 0 && ring[0].Within(other) != geom.Outside {
				return true
			}
		}
	}
	return false
}

// 快速包围盒过滤；边界相接也视为重叠
func boundsTouch(a, b *geom.Bounds) bool {
	return a.Min.X <= b.Max.X+eps && b.Min.X <= a.Max.X+eps &&
		a.Min.Y <= b.Max.Y+eps && b.Min.Y <= a.Max.Y+eps
}

func orient(p, q, r geom.Point) int {
	v := (q.X-p.X)*(r.Y-p.Y) - (q.Y-p.Y)*(r.X-p.X)
	switch {
	case v > eps:
		return 1
	case v < -eps:
		return -1
	}
	return 0
}

// r 与 pq 共线时，判断 r 是否落在 pq 的范围内
func onSegment(p, q, r geom.Point) bool {
	return r.X <= math.Max(p.X, q.X)+eps && r.X >= math.Min(p.X, q.X)-eps &&
		r.Y <= math.Max(p.Y, q.Y)+eps && r.Y >= math.Min(p.Y, q.Y)-eps
}

// 线段相交（含端点接触与共线重叠）
func segmentsIntersect(p1, p2, p3, p4 geom.Point) bool {
	d1 := orient(p3, p4, p1)
	d2 := orient(p3, p4, p2)
	d3 := orient(p1, p2, p3)
	d4 := orient(p1, p2, p4)
	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	switch {
	case d1 == 0 && onSegment(p3, p4, p1):
		return true
	case d2 == 0 && onSegment(p3, p4, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, p3):
		return true
	case d4 == 0 && onSegment(p1, p2, p4):
		return true
	}
	return false
}
