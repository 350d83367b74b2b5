/*
Package ports defines the driven ports (interfaces) of the canvas.

These interfaces decouple the canvas core from external implementations, so the
same workspace can run against different generation backends, checkpoint stores
and lock managers.

# Key Interfaces

  - Generator: produces image, text, speech and video payloads for tool nodes.
  - Credentials: checks for and requests the API credential needed by video generation.
  - CanvasStore: persists the current graph of a canvas (never its history).
  - DistributedLocker: coordinates access to a session across replicas.
*/
package ports
