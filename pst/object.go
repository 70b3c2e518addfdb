/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 21 10:12:40 2019 mstenber
 * Last modified: Fri Mar 22 11:30:05 2019 mstenber
 * Edit time:     36 min
 *
 */

package pst

import (
	"github.com/fingon/go-pstndb/ltp"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
)

type propertySource interface {
	Get(tag ltp.PropertyTag) (ltp.PropertyValue, bool, error)
}

// properties implements the property getters shared by all objects.
type properties struct {
	file   *File
	source propertySource
}

// GetProperty returns the value of the property; found is false if
// the object does not have it.
func (self *properties) GetProperty(tag ltp.PropertyTag) (ltp.PropertyValue, bool, error) {
	return self.source.Get(tag)
}

// GetNumericalProperty resolves the named property through the
// name-to-id map and returns its value.
func (self *properties) GetNumericalProperty(tag ltp.NumericalPropertyTag) (ltp.PropertyValue, bool, error) {
	id, found, err := self.file.names.GetPropertyID(tag.Set, tag.ID)
	if err != nil || !found {
		mlog.Printf2("pst/object", "GetNumericalProperty %v/%x unmapped", tag.Set, tag.ID)
		return ltp.PropertyValue{}, false, err
	}
	return self.source.Get(ltp.PropertyTag{ID: id, Type: tag.Type})
}

// GetStringProperty resolves the named property through the
// name-to-id map and returns its value.
func (self *properties) GetStringProperty(tag ltp.StringPropertyTag) (ltp.PropertyValue, bool, error) {
	id, found, err := self.file.names.GetPropertyIDByName(tag.Set, tag.Name)
	if err != nil || !found {
		mlog.Printf2("pst/object", "GetStringProperty %v/%q unmapped", tag.Set, tag.Name)
		return ltp.PropertyValue{}, false, err
	}
	return self.source.Get(ltp.PropertyTag{ID: id, Type: tag.Type})
}

// GetString is shorthand for string property; absent property is an
// empty string.
func (self *properties) GetString(tag ltp.PropertyTag) (string, error) {
	v, found, err := self.GetProperty(tag)
	if err != nil || !found {
		return "", err
	}
	return v.String()
}

// GetInt32 is shorthand for integer property; absent property is 0.
func (self *properties) GetInt32(tag ltp.PropertyTag) (int32, error) {
	v, found, err := self.GetProperty(tag)
	if err != nil || !found {
		return 0, err
	}
	return v.Int32()
}

// object is a node stored as property context.
type object struct {
	properties
	NID   ndb.NID
	entry ndb.NodeEntry
	pc    *ltp.PropertyContext
}

// Properties returns all properties of the object in id order.
func (self *object) Properties() ([]ltp.Property, error) {
	return self.pc.All()
}

// table opens table context node of the given type that shares the
// object's index (e.g. folder's hierarchy table). found is false
// when there is no such node.
func (self *object) table(t ndb.NIDType) (tc *ltp.TableContext, found bool, err error) {
	e, found := self.file.dir.Node(self.NID.WithType(t))
	if !found {
		return
	}
	tc, err = ltp.OpenTableContext(self.file.dir, e.DataBID, e.SubnodeBID)
	found = err == nil
	return
}

// subnodeTable opens table context stored as subnode of the given
// type.
func (self *object) subnodeTable(t ndb.NIDType) (tc *ltp.TableContext, found bool, err error) {
	e, found, err := self.file.dir.FindSubnodeByType(self.entry.SubnodeBID, t)
	if err != nil || !found {
		return
	}
	tc, err = ltp.OpenTableContext(self.file.dir, e.DataBID, e.SubnodeBID)
	found = err == nil
	return
}
