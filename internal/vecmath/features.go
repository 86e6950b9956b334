package vecmath

import "golang.org/x/sys/cpu"

// simdMinWidth is the shortest vector length for which the widened
// accumulation path pays for its own setup cost.
const simdMinWidth = 8

// hasSIMD is true when the CPU exposes the instruction set the widened
// accumulation path in simd.go was written against. Feature-gating this
// way (rather than a build tag alone) matches the teacher tensor package's
// useAVX2FMA check, so a binary built on one machine behaves correctly when
// it later runs on an older one.
var hasSIMD = cpu.X86.HasAVX2 && cpu.X86.HasFMA || cpu.ARM64.HasASIMD
