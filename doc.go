// Package libhook redirects a function to a handler by rewriting the
// machine code at its entry point.
//
// A Hook overwrites the first whole instructions of the source with an
// absolute jump to the destination, padded with NOPs, and keeps the
// original bytes so Remove can put them back exactly. The Detour strategy
// also copies the overwritten instructions into an executable trampoline
// that jumps back into the source, so the original behavior stays
// reachable through TrampolineAddress or Trampoline.
//
// Limitations:
//   - Only supports 386 and amd64. The stub is picked at build time.
//   - The stub loads the destination into AX/RAX before jumping.
//   - Detour rejects prologues with instructions relative to their own
//     address rather than relocating them.
//   - Nothing stops other threads from running the code being rewritten.
//     Callers must keep them out during Apply and Remove.
//   - On Unix systems other than Linux the pages being patched are assumed
//     to be read-execute beforehand.
package libhook
