/*
Package session manages the live canvases of a process.

A Manager keeps one workspace per session ID, creates and restores them on
demand, and optionally checkpoints their current graph into a
ports.CanvasStore. Access to a session's checkpoint is serialised locally with
reference-counted mutexes and, when configured, across replicas with a
ports.DistributedLocker. Undo history is never persisted: a canvas restored
from a checkpoint starts with a single history step.
*/
package session
