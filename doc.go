/*
go-detrack runs an object detection model over images and video frames and
gives the resulting detections a persistent identity across frames.

Each frame passes through the same fixed sequence of stages.  The source image
is letterboxed into the model's input canvas, the model's raw prediction
tensor is parsed into per class bounding boxes, redundant boxes are removed
with non maximum suppression, boxes are optionally associated with tracks, and
finally the coordinates are mapped back into the pixel space of the original
frame for annotation.  The time spent in each stage is recorded so runs can be
profiled.

The stages live in their own packages (preprocess, postprocess, tracker and
timing) and are composed by Pipeline.  Model backends are in the inference
package, media input and output in source, and drawing in render.

See example code and usage in the example subdirectory.
*/
package detrack
