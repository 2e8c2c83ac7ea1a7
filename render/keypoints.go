package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-detrack/postprocess/result"
)

/* skeleton keypoints
0: Nose
1: Left Eye
2: Right Eye
3: Left Ear
4: Right Ear
5: Left Shoulder
6: Right Shoulder
7: Left Elbow
8: Right Elbow
9: Left Wrist
10: Right Wrist
11: Left Hip
12: Right Hip
13: Left Knee
14: Right Knee
15: Left Ankle
16: Right Ankle
*/

var (
	// skeleton defines the pose skeleton points to draw lines between.  The numbers
	// are paired, so (16,14) means draw line from right ankle to right knee.
	skeleton = [38]int{16, 14, 14, 12, 17, 15, 15, 13, 12, 13, 6, 12, 7, 13, 6, 7, 6, 8,
		7, 9, 8, 10, 9, 11, 2, 3, 1, 2, 1, 3, 2, 4, 3, 5, 4, 6, 5, 7}
	// keyPointsTotal is the number of keypoints in a skeleton
	keyPointsTotal = 17
)

// minVisibility is the visibility below which keypoints are not drawn
const minVisibility = 0.5

type limb struct {
	from, to image.Point
	clr      color.RGBA
}

type joint struct {
	at  image.Point
	clr color.RGBA
}

// poseShapes returns the limbs and joints to draw for the keypoints of a
// box.  Skeleton limbs are only drawn for 17 point COCO poses, other point
// sets are drawn as joints alone.
func poseShapes(points []result.KeyPoint) ([]limb, []joint) {

	var limbs []limb
	var joints []joint

	pt := func(k result.KeyPoint) image.Point {
		return image.Pt(int(k.X), int(k.Y))
	}

	if len(points) == keyPointsTotal {
		for j := 0; j < len(skeleton)/2; j++ {
			a := points[skeleton[2*j]-1]
			b := points[skeleton[2*j+1]-1]

			if a.Visibility < minVisibility || b.Visibility < minVisibility {
				continue
			}

			limbs = append(limbs, limb{from: pt(a), to: pt(b), clr: limbColors[j]})
		}
	}

	for j, k := range points {
		if k.Visibility < minVisibility {
			continue
		}

		clr := Pink
		if len(points) == keyPointsTotal {
			clr = keyPointColors[j]
		}

		joints = append(joints, joint{at: pt(k), clr: clr})
	}

	return limbs, joints
}
