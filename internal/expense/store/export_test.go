package store

var ImportLockKey = importLockKey
