package mounts

import (
	. "gopkg.in/check.v1"
)

type FilterSuite struct{}

var _ = Suite(&FilterSuite{})

func (s *FilterSuite) TestPathPrefix(c *C) {
	testdata := []struct {
		Path, Prefix string
		Expected     bool
	}{
		{"/mnt", "/mnt", true},
		{"/mnt/a", "/mnt", true},
		{"/mnt/a", "/mnt/", true},
		{"/mntx", "/mnt", false},
		{"/home", "/", true},
		{"/media/user/USB KEY", "/media/user", true},
		{"/media", "/media/user", false},
	}

	for _, d := range testdata {
		c.Check(hasPathPrefix(d.Path, d.Prefix), Equals, d.Expected,
			Commentf("path: %s prefix: %s", d.Path, d.Prefix))
	}
}

func (s *FilterSuite) TestKinds(c *C) {
	c.Check(isVirtualKind("tmpfs"), Equals, true)
	c.Check(isVirtualKind("ext4"), Equals, false)
	c.Check(isNetworkKind("nfs4"), Equals, true)
	c.Check(isNetworkKind("btrfs"), Equals, false)
}

func (s *FilterSuite) TestReadOnly(c *C) {
	c.Check(isReadOnly([]string{"rw", "relatime"}), Equals, false)
	c.Check(isReadOnly([]string{"ro", "nosuid"}), Equals, true)
	c.Check(isReadOnly(nil), Equals, false)
}
