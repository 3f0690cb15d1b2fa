// Package manifest turns an Android manifest into typed components.
//
// A manifest is first loaded into an attributed-element tree (Element) from
// an APK, a binary AXML file or a plain XML file. The Walker then traverses
// the tree in document order and builds one model.Component per
// application, activity, service, receiver and provider element, using the
// attribute schema tables in package model and the coercion rules in this
// package.
package manifest
