// Package accessory models bridged devices as accessories: trees of
// services holding typed characteristics, using HAP type IDs and the
// conventional JSON wire shape (aid/iid/type/perms/format/value).
//
// The model is transport-neutral. It carries values, metadata, and the
// two hook points the bridge needs:
//
//   - Characteristic.Write: a client sets a value; the registered
//     write hook decides whether it is accepted
//   - Characteristic.Update: the bridge refreshes a value from device
//     state; only change observers fire
//
// Accessory IDs derive deterministically from core device IDs, so the
// same device always presents the same aid without a persistence layer.
// Instance IDs are assigned sequentially when services are added.
package accessory
