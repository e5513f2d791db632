package netlink

import "errors"

var (
	ErrBadLength       = errors.New("netlink: bad message or attribute length")
	ErrTruncated       = errors.New("netlink: truncated message")
	ErrPolicyViolation = errors.New("netlink: attribute violates policy")
	ErrNoSuchFamily    = errors.New("netlink: generic-netlink family not found")
)
