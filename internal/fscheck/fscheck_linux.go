//go:build linux

package fscheck

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// linuxMagic maps statfs f_type values of shared filesystems to names.
var linuxMagic = map[uint32]string{
	unix.NFS_SUPER_MAGIC:  "nfs",
	unix.CIFS_SUPER_MAGIC: "cifs",
	unix.SMB_SUPER_MAGIC:  "smbfs",
	unix.SMB2_SUPER_MAGIC: "smb2",
	unix.CEPH_SUPER_MAGIC: "ceph",
	unix.AFS_SUPER_MAGIC:  "afs",
	unix.V9FS_MAGIC:       "9p",
}

func detectFilesystemType(path string) (string, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return "", fmt.Errorf("statfs %q: %w", path, err)
	}

	// f_type is signed on some architectures; compare the low 32 bits.
	magic := uint32(st.Type)
	if name, ok := linuxMagic[magic]; ok {
		return name, nil
	}
	return fmt.Sprintf("0x%x", magic), nil
}
