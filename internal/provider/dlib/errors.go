package dlib

import "errors"

// ErrNoFaceDetected is returned when dlib finds no face inside the box
var ErrNoFaceDetected = errors.New("dlib: no face detected")
