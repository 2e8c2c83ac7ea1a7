package detrack

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Taxonomy is the ordered list of class names a Model was trained on.  The
// class ID of a detection is its index into the Taxonomy.
type Taxonomy []string

// LoadLabels reads the labels used to train the Model from the given text
// file.  It should contain one label per line, blank lines and lines
// starting with # are skipped.
func LoadLabels(file string) (Taxonomy, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening labels file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels Taxonomy

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		labels = append(labels, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading labels file: %w", err)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: labels file %s has no labels", ErrConfig, file)
	}

	return labels, nil
}

// Len returns the number of classes
func (t Taxonomy) Len() int {
	return len(t)
}

// Name returns the label of a class ID, or a placeholder when the ID is
// outside the taxonomy
func (t Taxonomy) Name(class int) string {
	if class < 0 || class >= len(t) {
		return fmt.Sprintf("class%d", class)
	}
	return t[class]
}

// Index returns the class ID of the named label
func (t Taxonomy) Index(name string) (int, bool) {
	for i, label := range t {
		if label == name {
			return i, true
		}
	}
	return -1, false
}

// COCOLabels are the 80 object classes of the COCO dataset in training order
var COCOLabels = Taxonomy{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train",
	"truck", "boat", "traffic light", "fire hydrant", "stop sign",
	"parking meter", "bench", "bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag",
	"tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot",
	"hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote",
	"keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}
