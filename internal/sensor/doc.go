// Package sensor holds the driver capability consumed by the sampling
// pipeline and its concrete variants.
//
// Drivers are thin I/O wrappers: they acquire one sample, report whether the
// device is present, and whether a read succeeded recently. They do not
// apply any emission policy.
package sensor
