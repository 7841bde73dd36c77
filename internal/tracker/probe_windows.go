//go:build windows

package tracker

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	oleacc   = windows.NewLazySystemDLL("oleacc.dll")
	oleaut32 = windows.NewLazySystemDLL("oleaut32.dll")

	procGetForegroundWindow        = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW             = user32.NewProc("GetWindowTextW")
	procGetWindowThreadProcessId   = user32.NewProc("GetWindowThreadProcessId")
	procAccessibleObjectFromWindow = oleacc.NewProc("AccessibleObjectFromWindow")
	procAccessibleChildren         = oleacc.NewProc("AccessibleChildren")
	procSysFreeString              = oleaut32.NewProc("SysFreeString")
)

const (
	objidClient    = 0xFFFFFFFC
	roleSystemText = 0x2A

	vtI4       = 3
	vtDispatch = 9

	// walkBudget bounds the number of accessibility nodes visited per
	// address-bar lookup; the tree under a busy browser window is huge.
	walkBudget = 250
	walkDepth  = 10
)

var iidIAccessible = windows.GUID{
	Data1: 0x618736E0, Data2: 0x3C3D, Data3: 0x11CF,
	Data4: [8]byte{0x81, 0x0C, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71},
}

// windowsProbe answers foreground-window queries with win32 calls and reads
// browser address bars through the MSAA accessibility tree.
type windowsProbe struct{}

func newPlatformProbe() Probe {
	return &windowsProbe{}
}

func (p *windowsProbe) ForegroundWindow() (uintptr, string, string, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return 0, "", "", fmt.Errorf("no foreground window")
	}

	var buf [512]uint16
	length, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	title := windows.UTF16ToString(buf[:length])

	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	// A process lookup miss degrades to "unknown", it never fails the tick
	process := "unknown"
	if pid != 0 {
		if name, err := processImageName(pid); err == nil {
			process = name
		}
	}

	return hwnd, process, title, nil
}

func processImageName(pid uint32) (string, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	var buf [windows.MAX_PATH]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("failed to query image name for %d: %w", pid, err)
	}

	return strings.ToLower(filepath.Base(windows.UTF16ToString(buf[:size]))), nil
}

// AddressBarURL walks the window's accessibility tree looking for an
// editable text control whose exposed name looks like an address bar.
func (p *windowsProbe) AddressBarURL(handle uintptr, title string) (string, error) {
	var acc *iAccessible
	hr, _, _ := procAccessibleObjectFromWindow.Call(
		handle,
		uintptr(uint32(objidClient)),
		uintptr(unsafe.Pointer(&iidIAccessible)),
		uintptr(unsafe.Pointer(&acc)),
	)
	if hr != 0 || acc == nil {
		return "", fmt.Errorf("no accessible object for window (hresult 0x%x)", hr)
	}
	defer acc.release()

	budget := walkBudget
	return findAddressBar(acc, 0, &budget), nil
}

// findAddressBar does a bounded depth-first search for a text control named
// like an address bar and returns its value.
func findAddressBar(acc *iAccessible, depth int, budget *int) string {
	if depth > walkDepth || *budget <= 0 {
		return ""
	}

	for _, kid := range acc.children() {
		*budget--
		if *budget <= 0 {
			return ""
		}

		switch kid.vt {
		case vtDispatch:
			child := toAccessible(kid)
			if child == nil {
				continue
			}
			url := ""
			if addressBarName(child.name(selfVariant())) && child.role(selfVariant()) == roleSystemText {
				url = child.value(selfVariant())
			}
			if url == "" {
				url = findAddressBar(child, depth+1, budget)
			}
			child.release()
			if url != "" {
				return url
			}
		case vtI4:
			// Simple element, addressed through its parent with a child id
			if addressBarName(acc.name(kid)) && acc.role(kid) == roleSystemText {
				if url := acc.value(kid); url != "" {
					return url
				}
			}
		}
	}

	return ""
}

func addressBarName(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "address") || strings.Contains(name, "bar")
}

// variant mirrors the 24-byte VARIANT layout on amd64. The Microsoft x64
// convention passes aggregates this size by pointer to a caller-owned copy,
// so every call below hands the callee &v of a local variant.
type variant struct {
	vt  uint16
	_   [3]uint16
	val int64
	_   [8]byte
}

func selfVariant() variant {
	return variant{vt: vtI4}
}

type iAccessible struct {
	vtbl *iAccessibleVtbl
}

type iAccessibleVtbl struct {
	queryInterface    uintptr
	addRef            uintptr
	release           uintptr
	getTypeInfoCount  uintptr
	getTypeInfo       uintptr
	getIDsOfNames     uintptr
	invoke            uintptr
	getAccParent      uintptr
	getAccChildCount  uintptr
	getAccChild       uintptr
	getAccName        uintptr
	getAccValue       uintptr
	getAccDescription uintptr
	getAccRole        uintptr
}

func (a *iAccessible) release() {
	syscall.SyscallN(a.vtbl.release, uintptr(unsafe.Pointer(a)))
}

func (a *iAccessible) name(child variant) string {
	var out *uint16
	hr, _, _ := syscall.SyscallN(a.vtbl.getAccName,
		uintptr(unsafe.Pointer(a)), uintptr(unsafe.Pointer(&child)), uintptr(unsafe.Pointer(&out)))
	runtime.KeepAlive(&child)
	if hr != 0 || out == nil {
		return ""
	}
	defer procSysFreeString.Call(uintptr(unsafe.Pointer(out)))
	return windows.UTF16PtrToString(out)
}

func (a *iAccessible) value(child variant) string {
	var out *uint16
	hr, _, _ := syscall.SyscallN(a.vtbl.getAccValue,
		uintptr(unsafe.Pointer(a)), uintptr(unsafe.Pointer(&child)), uintptr(unsafe.Pointer(&out)))
	runtime.KeepAlive(&child)
	if hr != 0 || out == nil {
		return ""
	}
	defer procSysFreeString.Call(uintptr(unsafe.Pointer(out)))
	return windows.UTF16PtrToString(out)
}

func (a *iAccessible) role(child variant) int32 {
	var out variant
	hr, _, _ := syscall.SyscallN(a.vtbl.getAccRole,
		uintptr(unsafe.Pointer(a)), uintptr(unsafe.Pointer(&child)), uintptr(unsafe.Pointer(&out)))
	runtime.KeepAlive(&child)
	if hr != 0 || out.vt != vtI4 {
		return 0
	}
	return int32(out.val)
}

func (a *iAccessible) children() []variant {
	var count int32
	hr, _, _ := syscall.SyscallN(a.vtbl.getAccChildCount,
		uintptr(unsafe.Pointer(a)), uintptr(unsafe.Pointer(&count)))
	if hr != 0 || count <= 0 {
		return nil
	}
	if count > 64 {
		count = 64
	}

	kids := make([]variant, count)
	var obtained int32
	hr, _, _ = procAccessibleChildren.Call(
		uintptr(unsafe.Pointer(a)), 0, uintptr(count),
		uintptr(unsafe.Pointer(&kids[0])), uintptr(unsafe.Pointer(&obtained)))
	if hr != 0 || obtained <= 0 {
		return nil
	}

	return kids[:obtained]
}

// toAccessible converts a dispatch-typed child variant into an IAccessible,
// releasing the dispatch reference it came with.
func toAccessible(v variant) *iAccessible {
	if v.vt != vtDispatch || v.val == 0 {
		return nil
	}

	disp := (*iAccessible)(unsafe.Pointer(uintptr(v.val)))
	var acc *iAccessible
	hr, _, _ := syscall.SyscallN(disp.vtbl.queryInterface,
		uintptr(unsafe.Pointer(disp)),
		uintptr(unsafe.Pointer(&iidIAccessible)),
		uintptr(unsafe.Pointer(&acc)))
	syscall.SyscallN(disp.vtbl.release, uintptr(unsafe.Pointer(disp)))
	if hr != 0 {
		return nil
	}

	return acc
}
