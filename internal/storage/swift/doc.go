// Package swift implements the storage transport on top of OpenStack Swift,
// authenticating through Keystone with gophercloud.
package swift
