// Command cabi builds the shared library consumed across the C ABI
// (go build -buildmode=c-shared). The exported symbols mirror the stable
// status-code contract of the boundary package; callers locate the library
// next to their executable or through the FIDONEXT_C_ABI environment
// variable.
package main

/*
#include <stdbool.h>
#include <stdint.h>
*/
import "C"

import (
	"gitlab.com/fidonext/connectivity-service/boundary"
)

//export cabi_init_tracing
func cabi_init_tracing() C.int {
	return C.int(boundary.InitTracing())
}

//export cabi_node_new
func cabi_node_new(useQuic C.bool) C.uintptr_t {
	return C.uintptr_t(boundary.NewNode(bool(useQuic)))
}

//export cabi_node_listen
func cabi_node_listen(handle C.uintptr_t, multiaddr *C.char) C.int {
	if multiaddr == nil {
		return C.int(boundary.NullPointer)
	}
	return C.int(boundary.Listen(boundary.Handle(handle), C.GoString(multiaddr)))
}

//export cabi_node_dial
func cabi_node_dial(handle C.uintptr_t, multiaddr *C.char) C.int {
	if multiaddr == nil {
		return C.int(boundary.NullPointer)
	}
	return C.int(boundary.Dial(boundary.Handle(handle), C.GoString(multiaddr)))
}

//export cabi_node_free
func cabi_node_free(handle C.uintptr_t) {
	boundary.FreeNode(boundary.Handle(handle))
}

func main() {}
