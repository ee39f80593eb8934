// Package handle implements the typed handle protocol over the default
// registry: the three verbs boundary code is built from.
//
// Track moves a freshly constructed value under registry ownership and
// returns the bare identity the foreign caller will hold:
//
//	func codecNew(name string) ffiguard.Ptr {
//	    return handle.Track(&Codec{name: name})
//	}
//
// Borrow validates identity and true allocated type before every access,
// and records failures in the calling thread's last-error slot:
//
//	func codecName(p ffiguard.Ptr) *C.char {
//	    c, err := handle.Borrow[Codec](p)
//	    if err != nil {
//	        return nil
//	    }
//	    ...
//	}
//
// Free reclaims any tracked handle regardless of its concrete type, exactly
// once; FreeStatus is the same verb collapsed to the boundary's 0/-1
// convention:
//
//	func codecFree(p ffiguard.Ptr) int32 {
//	    return handle.FreeStatus(p)
//	}
//
// Borrowed references are valid only for the duration of the current call
// and must never be stored: after Free the registry no longer pins the
// value and the identity is rejected.
package handle
