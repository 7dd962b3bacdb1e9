package models

import (
	"fmt"
	"strconv"
	"strings"
)

const imageExt = ".jpg"

// ImageName returns the deterministic file name of a capture.
func ImageName(round, image int) string {
	return fmt.Sprintf("%d_%d%s", round, image, imageExt)
}

// ParseImageName is the inverse of ImageName.
func ParseImageName(name string) (round, image int, ok bool) {
	base, found := strings.CutSuffix(name, imageExt)
	if !found {
		return 0, 0, false
	}
	r, i, found := strings.Cut(base, "_")
	if !found {
		return 0, 0, false
	}
	round, err := strconv.Atoi(r)
	if err != nil || round < 0 {
		return 0, 0, false
	}
	image, err = strconv.Atoi(i)
	if err != nil || image < 0 {
		return 0, 0, false
	}
	return round, image, true
}
