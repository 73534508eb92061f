package detector

import "strconv"

// Class IDs of the trained fire/smoke/human model, in training label order.
const (
	ClassFire  = 0
	ClassSmoke = 1
	ClassHuman = 2
	NumClasses = 3
)

// Label names for the model classes.
const (
	LabelFire  = "fire"
	LabelSmoke = "smoke"
	LabelHuman = "human"
)

var labels = [NumClasses]string{
	ClassFire:  LabelFire,
	ClassSmoke: LabelSmoke,
	ClassHuman: LabelHuman,
}

// Labels returns the class label list in class ID order.
func Labels() []string {
	return labels[:]
}

// LabelFor returns the label for a class ID. Classes outside the trained set
// are reported by number so unexpected model output stays visible.
func LabelFor(classID int) string {
	if classID >= 0 && classID < NumClasses {
		return labels[classID]
	}
	return "class_" + strconv.Itoa(classID)
}

// ClassFor returns the class ID for a label, or -1 if unknown.
func ClassFor(label string) int {
	for id, l := range labels {
		if l == label {
			return id
		}
	}
	return -1
}
